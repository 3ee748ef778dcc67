package build

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/rocksun/siteship/internal/site"
)

// Seeds a sandbox with one input.
//
// Host sources are resolved relative to root and streamed in as a tar
// archive. Step sources are streamed from the previous step's sandbox; the
// returned digest identifies that handoff stream. Host copies return an
// empty digest.
func seedInput(ctx context.Context, dst Sandbox, in site.Input, root string, prev *sandboxStep) (digest.Digest, error) {

	// Ensure the destination parent directory exists.
	if destDir := filepath.Dir(in.Dest); destDir != "" {
		if err := dst.MkdirAll(ctx, destDir); err != nil {
			return "", fmt.Errorf("%w: %w", ErrCopy, err)
		}
	}

	if in.FromStep() {
		if prev == nil || prev.name != in.Step {
			return "", fmt.Errorf("%w: step %q is not the previous step", ErrCopy, in.Step)
		}
		return copyFromStep(ctx, dst, prev, in.Source, in.Dest)
	}

	return "", copyFromHost(ctx, dst, in.Source, in.Dest, root)
}

// Copies a file or directory from the host into the sandbox.
func copyFromHost(ctx context.Context, dst Sandbox, src, dest, root string) error {
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	slog.Debug("copy", "src", src, "dest", dest, "dir", info.IsDir())

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		var writeErr error

		if info.IsDir() {
			writeErr = writeDirToTar(tw, src, filepath.Base(dest))
		} else {
			writeErr = writeFileToTar(tw, src, filepath.Base(dest))
		}

		if closeErr := tw.Close(); writeErr == nil {
			writeErr = closeErr
		}
		pw.CloseWithError(writeErr)
	}()

	if err := dst.CopyTo(ctx, pr, filepath.Dir(dest)); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return nil
}

// Copies a path from the previous step's sandbox into dst.
//
// The tar stream is piped directly from the source sandbox's CopyFrom to the
// target's CopyTo, and digested on the way through.
func copyFromStep(ctx context.Context, dst Sandbox, prev *sandboxStep, path, dest string) (digest.Digest, error) {
	slog.Debug("step copy", "step", prev.name, "src", path, "dest", dest)

	pr, pw := io.Pipe()
	digester := digest.Canonical.Digester()

	errc := make(chan error, 1)
	go func() {
		err := prev.sandbox.CopyFrom(ctx, io.MultiWriter(pw, digester.Hash()), path)
		pw.CloseWithError(err)
		errc <- err
	}()

	if err := dst.CopyTo(ctx, pr, filepath.Dir(dest)); err != nil {
		pr.CloseWithError(err)
		<-errc
		return "", fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := <-errc; err != nil {
		return "", fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return digester.Digest(), nil
}

// Writes a single file to a tar writer with the given archive name.
func writeFileToTar(tw *tar.Writer, hostPath, name string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Writes a directory tree to a tar writer rooted at the given archive prefix.
func writeDirToTar(tw *tar.Writer, hostDir, prefix string) error {
	return filepath.WalkDir(hostDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}

		archivePath := filepath.ToSlash(filepath.Join(prefix, relPath))
		return writeTarEntry(tw, path, archivePath, d)
	})
}

// Writes a single file or directory entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}
