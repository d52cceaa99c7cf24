package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/patchbay/internal/ir"
)

// DirStager copies input files into Root/<node path>/, one directory per
// node, so the host reads files the server owns.
type DirStager struct {
	Root string
}

// Stage copies file under the node's directory and returns the copy's
// path. A file already inside Root is returned unchanged.
func (d DirStager) Stage(ctx context.Context, node ir.Path, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	src, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolve input file: %w", err)
	}
	if strings.HasPrefix(src, root+string(filepath.Separator)) {
		return src, nil
	}

	dir := filepath.Join(append([]string{root}, node.Elems()...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create node data dir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy input file: %w", err)
	}
	return out.Close()
}
