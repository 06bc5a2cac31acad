package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/sharing"
	"google.golang.org/api/drive/v3"
)

// downloaded is the result of fetching one media item's binary from its
// source service.
type downloaded struct {
	data     []byte
	mimeType string
	extHint  string
}

// driveDownloader fetches file content and metadata from Google Drive.
type driveDownloader struct {
	svc *drive.Service
}

func newDriveDownloader(svc *drive.Service) *driveDownloader {
	return &driveDownloader{svc: svc}
}

func (d *driveDownloader) download(ctx context.Context, fileID string) (downloaded, error) {
	meta, err := d.svc.Files.Get(fileID).Fields("id,name,mimeType").Context(ctx).Do()
	if err != nil {
		return downloaded{}, fmt.Errorf("drive metadata for %s: %w", fileID, err)
	}
	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return downloaded{}, fmt.Errorf("drive download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return downloaded{}, fmt.Errorf("drive read %s: %w", fileID, err)
	}
	return downloaded{data: data, mimeType: meta.MimeType}, nil
}

// dropboxDownloader fetches a shared-link file's content, preferring the
// sharing API when an access token is configured and otherwise falling
// back to a direct HTTP GET against the public shared link.
type dropboxDownloader struct {
	client  sharing.Client
	httpc   *http.Client
	hasAuth bool
}

func newDropboxDownloader(accessToken string, timeout time.Duration) *dropboxDownloader {
	d := &dropboxDownloader{httpc: &http.Client{Timeout: timeout}}
	if accessToken != "" {
		cfg := dropbox.Config{Token: accessToken, LogLevel: dropbox.LogOff}
		d.client = sharing.New(cfg)
		d.hasAuth = true
	}
	return d
}

var dispositionExtRe = regexp.MustCompile(`filename\*?=.*?\.([A-Za-z0-9]{1,8})`)

func (d *dropboxDownloader) download(ctx context.Context, sharedURL string) (downloaded, error) {
	if d.hasAuth {
		_, content, err := d.client.GetSharedLinkFile(&sharing.GetSharedLinkMetadataArg{Url: sharedURL})
		if err != nil {
			return downloaded{}, fmt.Errorf("dropbox shared link %s: %w", sharedURL, err)
		}
		defer content.Close()
		data, err := io.ReadAll(content)
		if err != nil {
			return downloaded{}, fmt.Errorf("dropbox read %s: %w", sharedURL, err)
		}
		return downloaded{data: data, mimeType: "application/octet-stream"}, nil
	}

	dl := directDownloadURL(sharedURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl, nil)
	if err != nil {
		return downloaded{}, err
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return downloaded{}, fmt.Errorf("dropbox direct download %s: %w", dl, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return downloaded{}, fmt.Errorf("dropbox direct download %s: status %d", dl, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return downloaded{}, err
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	extHint := ""
	if m := dispositionExtRe.FindStringSubmatch(resp.Header.Get("Content-Disposition")); m != nil {
		extHint = strings.ToLower(m[1])
	}
	return downloaded{data: data, mimeType: ctype, extHint: extHint}, nil
}

// directDownloadURL rewrites a Dropbox shared link to force a raw
// download instead of rendering the Dropbox preview page.
func directDownloadURL(sharedURL string) string {
	switch {
	case strings.Contains(sharedURL, "dl=0"):
		return strings.Replace(sharedURL, "dl=0", "dl=1", 1)
	case strings.Contains(sharedURL, "dl=1"):
		return sharedURL
	case strings.Contains(sharedURL, "?"):
		return sharedURL + "&dl=1"
	default:
		return sharedURL + "?dl=1"
	}
}
