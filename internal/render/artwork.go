package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ErrArtwork is wrapped by every artwork resolution failure.
var ErrArtwork = errors.New("artwork unavailable")

const (
	maxArtworkBytes = 16 << 20
	fetchTimeout    = 5 * time.Second
)

// ArtworkLoader resolves song image references to decoded images.
//
// A reference is one of:
//   - an http(s) URL
//   - a file:// URI
//   - an .mp3 file, whose front-cover picture frame is used
//   - any other path, read as an image file relative to BaseDir
type ArtworkLoader struct {
	BaseDir string
	Client  *http.Client
}

// Load resolves ref. All failures wrap ErrArtwork.
func (l *ArtworkLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: no image reference", ErrArtwork)
	}

	var (
		data []byte
		err  error
	)
	switch u, perr := url.Parse(ref); {
	case perr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		data, err = l.fetch(ctx, ref)
	case perr == nil && u.Scheme == "file":
		data, err = l.readFile(u.Path)
	default:
		data, err = l.readFile(l.resolvePath(ref))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtwork, ref, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", ErrArtwork, ref, err)
	}
	return img, nil
}

func (l *ArtworkLoader) resolvePath(p string) string {
	if filepath.IsAbs(p) || l.BaseDir == "" {
		return p
	}
	return filepath.Join(l.BaseDir, p)
}

func (l *ArtworkLoader) readFile(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return embeddedCover(path)
	}
	return os.ReadFile(path)
}

func (l *ArtworkLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
}

// embeddedCover returns the picture stored in an MP3's ID3v2 tag,
// preferring the front cover when several are present.
func embeddedCover(path string) ([]byte, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Attached picture"}})
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	var picture []byte
	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		if pic.PictureType == id3v2.PTFrontCover {
			return pic.Picture, nil
		}
		if picture == nil {
			picture = pic.Picture
		}
	}
	if picture == nil {
		return nil, errors.New("no embedded picture")
	}
	return picture, nil
}
