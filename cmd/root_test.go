package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/app"
	"github.com/JakeFAU/trademark-harvester/internal/batch"
	"github.com/JakeFAU/trademark-harvester/internal/config"
	"github.com/JakeFAU/trademark-harvester/internal/harvest"
)

func useTestApp(t *testing.T) {
	t.Helper()
	orig := newApp
	newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
		return app.New(cfg, zap.NewNop(), app.WithRegisterer(prometheus.NewRegistry()))
	}
	t.Cleanup(func() { newApp = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	state := &rootState{}
	root := newRootCmd(state)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if state.app != nil {
		require.NoError(t, state.app.Close(context.Background()))
	}
	return out.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestHarvestCommandWritesArtifactAndImages(t *testing.T) {
	useTestApp(t)

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/img/mark.jpg":
			_, _ = w.Write([]byte("jpeg"))
		case r.URL.Query().Get("lodgement_date") == "2024-01-01":
			fmt.Fprintf(w, `{"lodgement_date":"2024-01-01","count":1,"items":[{"applicationNum":"T1","documents":[{"url":"%s/img/mark.jpg","fileName":"mark.jpg"}]}]}`, srvURL)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf("api:\n  base_url: %s/trademarks\nharvest:\n  batch_delay: 0s\nlogging:\n  development: false\n", srv.URL))
	output := filepath.Join(dir, "out.json")
	images := filepath.Join(dir, "images")

	stdout, err := execute(t, "harvest", "--config", cfgPath,
		"-s", "2024-01-01", "-e", "2024-01-03", "-o", output, "-p", "2", "-d", "--images-dir", images)
	require.NoError(t, err)

	var report harvest.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 3, report.Days.Attempted)
	assert.Equal(t, 1, report.Days.Succeeded)
	require.NotNil(t, report.Assets)
	assert.Equal(t, 1, report.Assets.Succeeded)

	days, err := harvest.ReadArtifact(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, days.Keys())
	data, err := os.ReadFile(filepath.Join(images, "T1_mark.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
}

func TestHarvestCommandRequiresDates(t *testing.T) {
	useTestApp(t)

	_, err := execute(t, "harvest", "-o", filepath.Join(t.TempDir(), "out.json"))
	require.ErrorContains(t, err, "harvest.start_date")
}

func TestDatasetCommand(t *testing.T) {
	useTestApp(t)

	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(raw, []byte(`[{"date":"2024-01-01","count":1,"items":[
		{"applicationNum":"T1","markIndex":[{"wordsInMark":"SUN"}],"documents":[{"url":"https://x/a.jpg","fileName":"a.jpg"}]}
	]}]`), 0o600))
	images := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(images, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "T1_a.jpg"), []byte("x"), 0o600))
	output := filepath.Join(dir, "cleaned.json")

	_, err := execute(t, "dataset", "-i", raw, "-o", output, "--images-dir", images)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"wordsInMark":"SUN","imageName":"T1_a.jpg"}]`, string(data))
}

func TestAssetsCommandDownloadsFromArtifact(t *testing.T) {
	useTestApp(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img/mark.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	artifact := filepath.Join(dir, "raw.json")
	body := fmt.Sprintf(`[{"date":"2024-01-01","count":1,"items":[
		{"applicationNum":"T1","documents":[{"url":"%s/img/mark.jpg","fileName":"mark.jpg"}]}
	]},{"date":"2024-01-02","count":0,"items":[]}]`, srv.URL)
	require.NoError(t, os.WriteFile(artifact, []byte(body), 0o600))
	images := filepath.Join(dir, "images")

	for range 2 {
		stdout, err := execute(t, "assets", "-i", artifact, "--images-dir", images, "-p", "2")
		require.NoError(t, err)
		var summary batch.Summary
		require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
		assert.Equal(t, harvest.PassAssets, summary.Pass)
		assert.Equal(t, 1, summary.Attempted)
		assert.Equal(t, 1, summary.Succeeded)
	}

	data, err := os.ReadFile(filepath.Join(images, "T1_mark.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, int32(1), hits.Load(), "existing images are not fetched again")
}

func TestFlagBindingsOnlyAnnotated(t *testing.T) {
	t.Parallel()

	cmd := newHarvestCmd()
	bindings := flagBindings(cmd)
	assert.Len(t, bindings, 7)
	assert.Equal(t, "start-date", bindings["harvest.start_date"].Name)
	assert.Equal(t, "images-dir", bindings["assets.dir"].Name)
}

func TestResolveAppMissing(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
