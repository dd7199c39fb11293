package entrypoint

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/refimg-go/internal/config"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var pic bytes.Buffer
	require.NoError(t, png.Encode(&pic, img))

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A4", "SOMA"))
	require.NoError(t, f.SetCellValue("Sheet1", "A5", "KIT-77"))
	require.NoError(t, f.AddPictureFromBytes("Sheet1", "H5", &excelize.Picture{
		Extension: ".png",
		File:      pic.Bytes(),
		Format:    &excelize.GraphicOptions{},
	}))

	path := filepath.Join(dir, "lote.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func localConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Upload.Backend = "local"
	cfg.Upload.LocalRoot = root
	cfg.Upload.PublicBaseURL = "https://loja.example.com/images/products"
	cfg.Processing.TempDir = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestProcessFile(t *testing.T) {
	root := t.TempDir()
	cfg := localConfig(t, root)
	path := writeWorkbook(t, t.TempDir())

	summary, err := ProcessFile(context.Background(), cfg, path, NewLogger(cfg.Log, os.Stderr))
	require.NoError(t, err)
	assert.Equal(t, "lote.xlsx", summary.Workbook)
	assert.Equal(t, 1, summary.TotalRefs)
	assert.Equal(t, 1, summary.UploadsSuccessful)
	require.Len(t, summary.Images, 1)
	assert.Equal(t, "KIT-77.png", summary.Images[0].Name)
	assert.Equal(t, "https://loja.example.com/images/products/KIT-77.png", summary.Images[0].URL)

	_, err = os.Stat(filepath.Join(root, "public_html", "images", "products", "KIT-77.png"))
	assert.NoError(t, err)
}

func TestProcessFileMissing(t *testing.T) {
	cfg := localConfig(t, t.TempDir())
	_, err := ProcessFile(context.Background(), cfg, filepath.Join(t.TempDir(), "absent.xlsx"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Log{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "ref", "T608")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"ref":"T608"`)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := localConfig(t, t.TempDir())
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = freePort(t)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, "test", NewLogger(cfg.Log, os.Stderr)) }()

	url := "http://127.0.0.1:" + strconv.Itoa(cfg.HTTP.Port) + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
