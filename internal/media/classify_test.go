package media

import "testing"

func TestClassifyLinkDrive(t *testing.T) {
	kind, id := ClassifyLink("https://drive.google.com/file/d/1aBcDeF23/view?usp=sharing")
	if kind != SourceDrive {
		t.Fatalf("expected SourceDrive, got %v", kind)
	}
	if id != "1aBcDeF23" {
		t.Errorf("expected extracted file ID, got %q", id)
	}
}

func TestClassifyLinkDropbox(t *testing.T) {
	kind, id := ClassifyLink("https://www.dropbox.com/s/abc123/photo.jpg?dl=0")
	if kind != SourceDropbox {
		t.Fatalf("expected SourceDropbox, got %v", kind)
	}
	if id != "" {
		t.Errorf("dropbox links carry no extracted ID, got %q", id)
	}
}

func TestClassifyLinkUnknown(t *testing.T) {
	kind, _ := ClassifyLink("https://example.com/some/file.jpg")
	if kind != SourceUnknown {
		t.Errorf("expected SourceUnknown, got %v", kind)
	}
}

func TestDetectMediaTypeByMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":      "image",
		"image/png":       "image",
		"video/mp4":       "video",
		"audio/mpeg":      "audio",
		"application/pdf": "pdf",
		"application/zip": "other",
	}
	for mimeType, want := range cases {
		if got := DetectMediaType(mimeType, ""); got != want {
			t.Errorf("DetectMediaType(%q, \"\") = %q, want %q", mimeType, got, want)
		}
	}
}

func TestDetectMediaTypeFallsBackToFilenameHint(t *testing.T) {
	if got := DetectMediaType("", "photo.png"); got != "image" {
		t.Errorf("expected filename-extension fallback to classify as image, got %q", got)
	}
	if got := DetectMediaType("application/octet-stream", "clip.mp4"); got != "video" {
		t.Errorf("expected filename-extension fallback to classify as video, got %q", got)
	}
}

func TestDetectMediaTypeUnclassifiable(t *testing.T) {
	if got := DetectMediaType("application/octet-stream", "mystery.xyz"); got != "other" {
		t.Errorf("expected unclassifiable type/extension to fall back to other, got %q", got)
	}
}

func TestGuessExtensionFromMIME(t *testing.T) {
	if got := GuessExtension("image/png", ""); got != "png" {
		t.Errorf("GuessExtension(image/png) = %q, want png", got)
	}
}

func TestGuessExtensionNormalizesJPE(t *testing.T) {
	if got := GuessExtension("image/jpeg", ""); got != "jpg" {
		t.Errorf("GuessExtension(image/jpeg) = %q, want jpg", got)
	}
}

func TestGuessExtensionFallsBackToFilenameThenBin(t *testing.T) {
	if got := GuessExtension("", "report.PDF"); got != "pdf" {
		t.Errorf("expected filename extension fallback, got %q", got)
	}
	if got := GuessExtension("", ""); got != "bin" {
		t.Errorf("expected final fallback to bin, got %q", got)
	}
}
