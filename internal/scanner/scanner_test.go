package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sydlexius/svgscout/internal/classify"
)

const (
	svgDoc    = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1 1"><path d="M0 0"/></svg>`
	vectorDoc = `<vector xmlns:android="http://schemas.android.com/apk/res/android" android:viewportWidth="24"><path android:pathData="M0 0"/></vector>`
	layoutDoc = `<LinearLayout xmlns:android="http://schemas.android.com/apk/res/android"/>`
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// faultFs fails Open for selected paths with a permission error, the way an
// unreadable file or directory behaves on a real disk.
type faultFs struct {
	afero.Fs
	deny map[string]bool
}

func (f *faultFs) Open(name string) (afero.File, error) {
	if f.deny[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func (f *faultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.deny[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func imagePaths(res *Result) []string {
	out := make([]string, 0, len(res.ImageFiles))
	for _, img := range res.ImageFiles {
		out = append(out, img.Path)
	}
	return out
}

func TestScan_MixedTreeWithUnreadableFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/proj/a.svg":                 svgDoc,
		"/proj/b.svg":                 svgDoc,
		"/proj/icons/c.svg":           svgDoc,
		"/proj/res/drawable/ic_x.xml": vectorDoc,
		"/proj/res/layout/main.xml":   layoutDoc,
		"/proj/secret.svg":            svgDoc,
		"/proj/readme.txt":            "hello",
	})
	fs := &faultFs{Fs: mem, deny: map[string]bool{"/proj/secret.svg": true}}

	var progress Progress
	res, err := New(fs, Options{}, testLogger()).Scan(context.Background(), "/proj", &progress)
	require.NoError(t, err)

	assert.Len(t, res.ImageFiles, 4)
	assert.Len(t, res.AllFiles, 7)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "/proj/secret.svg", res.Warnings[0].Path)
	assert.Equal(t, OpRead, res.Warnings[0].Op)
	assert.NotContains(t, imagePaths(res), "/proj/secret.svg")

	kinds := map[classify.Kind]int{}
	for _, img := range res.ImageFiles {
		kinds[img.Type]++
	}
	assert.Equal(t, 3, kinds[classify.KindSVG])
	assert.Equal(t, 1, kinds[classify.KindAndroidVector])

	snap := progress.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.EqualValues(t, 7, snap.Processed)
	assert.EqualValues(t, 4, snap.ImagesFound)
	// proj: 6 entries, icons: 1, res: 2, drawable: 1, layout: 1
	assert.EqualValues(t, 11, snap.TotalDiscovered)
}

func TestScan_DepthFirstNameOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/r/a.svg":     svgDoc,
		"/r/b/c.svg":   svgDoc,
		"/r/b/d/e.svg": svgDoc,
		"/r/f.svg":     svgDoc,
	})

	res, err := New(fs, Options{}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/r/a.svg", "/r/b/c.svg", "/r/b/d/e.svg", "/r/f.svg"}, imagePaths(res))
	assert.Equal(t, "/r", res.Root)
}

func TestScan_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/file.svg": svgDoc})
	sc := New(fs, Options{}, testLogger())

	_, err := sc.Scan(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = sc.Scan(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = sc.Scan(context.Background(), "/nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = sc.Scan(context.Background(), "/data/file.svg", nil)
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestScan_UnreadableSubdirectoryIsWarning(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"/r/locked/x.svg": svgDoc,
		"/r/open/y.svg":   svgDoc,
	})
	fs := &faultFs{Fs: mem, deny: map[string]bool{"/r/locked": true}}

	res, err := New(fs, Options{}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/r/open/y.svg"}, imagePaths(res))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, Warning{Path: "/r/locked", Op: OpReadDir, Error: res.Warnings[0].Error}, res.Warnings[0])
	assert.Contains(t, res.Warnings[0].Error, "permission denied")
}

func TestScan_UnlistableRootFails(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{"/r/a.svg": svgDoc})
	fs := &faultFs{Fs: mem, deny: map[string]bool{"/r": true}}

	var progress Progress
	res, err := New(fs, Options{}, testLogger()).Scan(context.Background(), "/r", &progress)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrScanFailed)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, progress.Snapshot().IsScanning)
}

func TestScan_ContextCanceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/r/a.svg": svgDoc})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var progress Progress
	_, err := New(fs, Options{}, testLogger()).Scan(ctx, "/r", &progress)
	assert.ErrorIs(t, err, ErrScanFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, progress.Snapshot().IsScanning)
}

func TestScan_MaxDepth(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/r/top.svg":         svgDoc,
		"/r/1/one.svg":       svgDoc,
		"/r/1/2/two.svg":     svgDoc,
		"/r/1/2/3/three.svg": svgDoc,
	})

	res, err := New(fs, Options{MaxDepth: 2}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/r/1/2/two.svg", "/r/1/one.svg", "/r/top.svg"}, imagePaths(res))

	res, err = New(fs, Options{}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)
	assert.Len(t, res.ImageFiles, 4)
}

func TestScan_ExtensionsAndContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/r/UPPER.SVG":     svgDoc,
		"/r/vector.XML":    vectorDoc,
		"/r/hidden.svgz":   svgDoc,
		"/r/svg-in-a.txt":  svgDoc,
	})

	res, err := New(fs, Options{IncludeContent: true}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)
	require.Len(t, res.ImageFiles, 2)
	assert.Len(t, res.AllFiles, 4)
	assert.Equal(t, "UPPER.SVG", res.ImageFiles[0].Name)
	assert.Equal(t, svgDoc, res.ImageFiles[0].Content)
	assert.EqualValues(t, len(svgDoc), res.ImageFiles[0].Size)
	assert.Equal(t, classify.KindAndroidVector, res.ImageFiles[1].Type)

	res, err = New(fs, Options{Extensions: []string{".txt"}}, testLogger()).Scan(context.Background(), "/r", nil)
	require.NoError(t, err)
	require.Len(t, res.ImageFiles, 1)
	assert.Equal(t, "svg-in-a.txt", res.ImageFiles[0].Name)
	assert.Empty(t, res.ImageFiles[0].Content)
}

func TestScan_Symlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "target.svg"), []byte(svgDoc), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(outside, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "dir", "inner.svg"), []byte(svgDoc), 0o644))

	if err := os.Symlink(filepath.Join(outside, "target.svg"), filepath.Join(root, "link.svg")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing.svg"), filepath.Join(root, "broken.svg")))
	// a cycle back to the root is reported, not followed
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	res, err := New(afero.NewOsFs(), Options{}, testLogger()).Scan(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "link.svg"),
		filepath.Join(root, "linkdir", "inner.svg"),
	}, imagePaths(res))
	assert.EqualValues(t, len(svgDoc), res.ImageFiles[0].Size)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, filepath.Join(root, "broken.svg"), res.Warnings[0].Path)
	assert.Equal(t, OpStat, res.Warnings[0].Op)
	assert.Equal(t, filepath.Join(root, "loop"), res.Warnings[1].Path)
	assert.Equal(t, OpLoop, res.Warnings[1].Op)
}

func TestScan_SymlinkLoopBelowRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "x.svg"), []byte(svgDoc), 0o644))
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "b", "up")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	res, err := New(afero.NewOsFs(), Options{}, testLogger()).Scan(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a", "b", "x.svg")}, imagePaths(res))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, OpLoop, res.Warnings[0].Op)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{Extensions: []string{".svg"}, MaxDepth: 3}.Validate())
	assert.Error(t, Options{MaxDepth: -1}.Validate())
	assert.Error(t, Options{Extensions: []string{"svg"}}.Validate())
	assert.Error(t, Options{Extensions: []string{"."}}.Validate())
}
