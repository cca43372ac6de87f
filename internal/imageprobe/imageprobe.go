// Package imageprobe は書籍の image_url が画像を指しているかを確認します。
package imageprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yourusername/book-catalog/internal/models"
)

var errBlockedAddress = errors.New("imageprobe: address not allowed")

// Options は Prober の設定です。
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	// AllowPrivateNetworks が false の場合、ループバックやプライベートアドレスへの接続を拒否します。
	AllowPrivateNetworks bool
}

// Prober は URL を取得し、先頭バイトから MIME タイプを判定します。
type Prober struct {
	client   *http.Client
	maxBytes int64
}

// New は Prober を作成します。
func New(opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 512 * 1024
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	if !opts.AllowPrivateNetworks {
		// DNS 解決後のアドレスで判定する
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !isPublic(ip) {
				return errBlockedAddress
			}
			return nil
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	return &Prober{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		maxBytes: opts.MaxBytes,
	}
}

// Probe は rawURL の内容を判定します。
// 取得に失敗した場合は ImageStatusUnreachable、画像でない場合は ImageStatusNotImage です。
func (p *Prober) Probe(ctx context.Context, rawURL string) (models.ImageStatus, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.ImageStatusUnreachable, fmt.Errorf("unsupported url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ImageStatusUnreachable, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.ImageStatusUnreachable, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ImageStatusUnreachable, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return models.ImageStatusUnreachable, err
	}

	mt := mimetype.Detect(head)
	if strings.HasPrefix(mt.String(), "image/") {
		return models.ImageStatusOK, nil
	}
	return models.ImageStatusNotImage, nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
