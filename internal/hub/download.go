package hub

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"llamactl/internal/common/fsutil"
)

// Downloader runs the external download tool and reports which model
// files appeared in the destination directory.
type Downloader struct {
	// Bin is the downloader executable, e.g. huggingface-cli.
	Bin string
	Log zerolog.Logger
}

// Download fetches the gguf files of modelID into destDir and returns
// the paths of files that were not there before the run. The contract
// with the tool is only "after it exits zero, the files are on disk".
func (d *Downloader) Download(ctx context.Context, modelID, destDir string) ([]string, error) {
	if err := ValidateModelID(modelID); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	before, err := fsutil.ScanModelFiles(destDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(before))
	for _, p := range before {
		seen[p] = true
	}

	args := []string{"download", modelID, "--include", "*.gguf", "--local-dir", destDir}
	cmd := exec.CommandContext(ctx, d.Bin, args...)
	cmd.Env = os.Environ()
	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.Bin, err)
	}
	go d.stream(stdout)
	go d.stream(stderr)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", d.Bin, err)
	}

	after, err := fsutil.ScanModelFiles(destDir)
	if err != nil {
		return nil, err
	}
	var fresh []string
	for _, p := range after {
		if !seen[p] {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

func (d *Downloader) stream(r io.Reader) {
	if r == nil {
		return
	}
	s := bufio.NewScanner(r)
	for s.Scan() {
		d.Log.Info().Str("tool", d.Bin).Msg(s.Text())
	}
}
