package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, jobID string) ([]byte, error) {
	f.calls = append(f.calls, jobID)
	body, ok := f.bodies[jobID]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

func requirePDFPrefix(data []byte) error {
	if !strings.HasPrefix(string(data), "%PDF-") {
		return errors.New("missing %PDF- header")
	}
	return nil
}

func TestDownloaderRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.pdf"), []byte("%PDF-existing"), 0644))

	f := &fakeFetcher{bodies: map[string][]byte{
		"1": []byte("%PDF-new"),
		"2": []byte("%PDF-1.7 posting"),
		"3": []byte("<html>captcha</html>"),
	}}
	d := NewDownloader(f, DownloaderOptions{Dir: dir, Validate: requirePDFPrefix})

	stats, err := d.Run(context.Background(), []string{"1", "2", "3", "4"})
	require.NoError(t, err)

	assert.Equal(t, DownloadStats{Downloaded: 1, Skipped: 1, Failed: 2}, stats)
	assert.Equal(t, []string{"2", "3", "4"}, f.calls)

	existing, err := os.ReadFile(filepath.Join(dir, "1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-existing", string(existing))

	saved, err := os.ReadFile(d.Path("2"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 posting", string(saved))

	assert.NoFileExists(t, d.Path("3"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestDownloaderRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{bodies: map[string][]byte{"1": []byte("%PDF-")}}
	d := NewDownloader(f, DownloaderOptions{Dir: t.TempDir()})

	_, err := d.Run(ctx, []string{"1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "7.pdf")
	require.NoError(t, writeFileAtomic(path, []byte("old")))
	require.NoError(t, writeFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCollyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/career/job/42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	cf, err := NewCollyFetcher(srv.URL+"/career/job/%s", 0)
	require.NoError(t, err)

	data, err := cf.Fetch(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	_, err = cf.Fetch(context.Background(), "43")
	assert.Error(t, err)
}

func TestDownloaderLogsSkippedFilesAtInfo(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.pdf"), []byte("%PDF-existing"), 0644))

	d := NewDownloader(&fakeFetcher{}, DownloaderOptions{Dir: dir, Validate: requirePDFPrefix})
	stats, err := d.Run(context.Background(), []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "pdf already exists, skipping")
	assert.Contains(t, out, "job_id=7")
}
