package atac

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// FetchBlacklist downloads the gzipped BED at url and writes it, decompressed,
// to dst. An existing dst is reused without contacting url. The download is
// canceled with ctx.
func FetchBlacklist(ctx context.Context, client *http.Client, url, dst string) (err error) {
	if _, err = file.Stat(ctx, dst); err == nil {
		log.Printf("blacklist: reusing %s", dst)
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return errors.E(errors.Invalid, err, url)
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return errors.E(errors.Net, err, url)
	}
	defer resp.Body.Close() // nolint: errcheck
	if resp.StatusCode != http.StatusOK {
		return errors.E(errors.Unavailable, fmt.Sprintf("GET %s: %s", url, resp.Status))
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return errors.E(errors.Integrity, err, url)
	}
	defer gz.Close() // nolint: errcheck

	out, err := file.Create(ctx, dst)
	if err != nil {
		return err
	}
	n, err := io.Copy(out.Writer(ctx), gz)
	if err != nil {
		_ = out.Close(ctx)
		_ = file.Remove(ctx, dst)
		return errors.E(err, "download "+url)
	}
	if err = out.Close(ctx); err != nil {
		_ = file.Remove(ctx, dst)
		return err
	}
	log.Printf("blacklist: fetched %s (%d bytes) to %s", url, n, dst)
	return nil
}
