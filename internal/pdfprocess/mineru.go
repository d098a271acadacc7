package pdfprocess

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/akolanti/irbench/internal/config"
)

// Parser turns one PDF into MinerU artifacts under workDir.
type Parser interface {
	Parse(ctx context.Context, pdfPath, workDir string) error
}

// MineruCLI shells out to the mineru binary. Args may use {input} and
// {output} placeholders; without args the CLI defaults are used.
type MineruCLI struct {
	cfg config.MineruConfig
}

func NewMineruCLI(cfg config.MineruConfig) *MineruCLI {
	return &MineruCLI{cfg: cfg}
}

func (m *MineruCLI) Parse(ctx context.Context, pdfPath, workDir string) error {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, m.cfg.Binary, m.args(pdfPath, workDir)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", m.cfg.Binary, filepath.Base(pdfPath), err, tail(out.String(), 512))
	}
	return nil
}

func (m *MineruCLI) args(pdfPath, workDir string) []string {
	if len(m.cfg.Args) == 0 {
		return []string{"-p", pdfPath, "-o", workDir}
	}
	args := make([]string, len(m.cfg.Args))
	r := strings.NewReplacer("{input}", pdfPath, "{output}", workDir)
	for i, a := range m.cfg.Args {
		args[i] = r.Replace(a)
	}
	return args
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// collect moves the artifacts of stem found anywhere below workDir into
// outDir, flattening the CLI's {stem}/auto layout. The images directory is
// moved alongside.
func collect(workDir, outDir, stem string) error {
	wanted := map[string]bool{
		stem + config.MiddleFileSuffix: true,
		stem + ".md":                   true,
		stem + "_content_list.json":    true,
	}
	return filepath.WalkDir(workDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "images" && p != workDir {
				return moveDir(p, filepath.Join(outDir, "images"))
			}
			return nil
		}
		if !wanted[d.Name()] {
			return nil
		}
		return os.Rename(p, filepath.Join(outDir, d.Name()))
	})
}

func moveDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Rename(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return filepath.SkipDir
}
