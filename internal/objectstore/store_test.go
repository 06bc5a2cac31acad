package objectstore

import "testing"

func TestPrivateURL(t *testing.T) {
	got := PrivateURL("archive-private", "media/foo/bar.jpg")
	want := "s3://archive-private/media/foo/bar.jpg"
	if got != want {
		t.Errorf("PrivateURL() = %q, want %q", got, want)
	}
}

func TestPublicURL(t *testing.T) {
	got := PublicURL("archive-public", "media/foo/bar.jpg")
	want := "https://archive-public.s3.amazonaws.com/media/foo/bar.jpg"
	if got != want {
		t.Errorf("PublicURL() = %q, want %q", got, want)
	}
}

func TestParsePrivateURLRoundTrip(t *testing.T) {
	url := PrivateURL("archive-private", "media/a/b/c.jpg")
	bucket, key, ok := ParsePrivateURL(url)
	if !ok {
		t.Fatalf("expected ParsePrivateURL to succeed for %q", url)
	}
	if bucket != "archive-private" || key != "media/a/b/c.jpg" {
		t.Errorf("got bucket=%q key=%q", bucket, key)
	}
}

func TestParsePrivateURLRejectsNonS3(t *testing.T) {
	cases := []string{
		"https://example.com/a/b",
		"s3://",
		"s3://bucket-with-no-key",
		"",
	}
	for _, c := range cases {
		if _, _, ok := ParsePrivateURL(c); ok {
			t.Errorf("expected ParsePrivateURL(%q) to fail", c)
		}
	}
}

func TestOriginalKey(t *testing.T) {
	got := OriginalKey("franklin-d-roosevelt", "white-house", "1933-04-23-franklin-d-roosevelt-potomac-trip", "jpg", "1933-04-23-white-house-1933-04-23-franklin-d-roosevelt-potomac-trip-01")
	want := "media/franklin-d-roosevelt/white-house/1933-04-23-franklin-d-roosevelt-potomac-trip/jpg/1933-04-23-white-house-1933-04-23-franklin-d-roosevelt-potomac-trip-01.jpg"
	if got != want {
		t.Errorf("OriginalKey() = %q, want %q", got, want)
	}
}

func TestDerivativeKeyLivesUnderOriginalExtPrefix(t *testing.T) {
	got := DerivativeKey("pres", "src", "voyage", "png", "slug-01", "thumb")
	want := "media/pres/src/voyage/png/slug-01_thumb.jpg"
	if got != want {
		t.Errorf("DerivativeKey() = %q, want %q", got, want)
	}
	if got[len(got)-4:] != ".jpg" {
		t.Error("derivative key must always end in .jpg regardless of original extension")
	}
}

func TestOriginalAndDerivativeKeysDoNotCollide(t *testing.T) {
	orig := OriginalKey("pres", "src", "voyage", "png", "slug-01")
	prev := DerivativeKey("pres", "src", "voyage", "png", "slug-01", "preview")
	thumb := DerivativeKey("pres", "src", "voyage", "png", "slug-01", "thumb")
	if orig == prev || orig == thumb || prev == thumb {
		t.Error("original, preview, and thumbnail keys for the same item must be distinct")
	}
}
