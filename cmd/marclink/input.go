package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"marclink/internal/logging"
	"marclink/internal/marc"
)

// corpus is an opened input file that can be read more than once.
type corpus struct {
	source marc.SeekableSource
	size   int64
	format marc.Format
	// Malformed counts records dropped while spooling MARCXML.
	malformed int

	file  *os.File
	spool string
}

func (c *corpus) Close() error {
	if c == nil || c.file == nil {
		return nil
	}
	err := c.file.Close()
	if c.spool != "" {
		if removeErr := os.Remove(c.spool); removeErr != nil && err == nil {
			err = removeErr
		}
	}
	return err
}

// openCorpus opens path for a multi-pass run. MARCXML is spooled to a
// binary file in workDir first.
func openCorpus(path, workDir string, logger *slog.Logger) (*corpus, error) {
	format, err := marc.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	c := &corpus{format: format}
	binaryPath := path

	if format == marc.FormatXML {
		src, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		xr, err := marc.NewXMLReader(src)
		if err != nil {
			src.Close()
			return nil, err
		}
		spooled, count, err := marc.Spool(xr, workDir, func(err error) {
			c.malformed++
			logging.WarnWithContext(logger, "skipping malformed MARCXML record", "malformed_record",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the record is not written"),
			)
		})
		src.Close()
		if err != nil {
			return nil, err
		}
		logger.Info("spooled MARCXML input",
			logging.String("input", path),
			logging.String("spool", spooled),
			logging.Int("records", count),
		)
		c.spool = spooled
		binaryPath = spooled
	}

	file, err := os.Open(binaryPath)
	if err != nil {
		if c.spool != "" {
			_ = os.Remove(c.spool)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		if c.spool != "" {
			_ = os.Remove(c.spool)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	c.file = file
	c.size = info.Size()
	c.source = marc.NewBinaryReader(file)
	return c, nil
}

// streamSource opens path for a single forward pass.
func streamSource(path string) (marc.Source, io.Closer, error) {
	format, err := marc.DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	if format == marc.FormatXML {
		xr, err := marc.NewXMLReader(file)
		if err != nil {
			file.Close()
			return nil, nil, err
		}
		return xr, file, nil
	}
	return marc.NewBinaryReader(file), file, nil
}

// outputFile writes to path+".partial" and renames it over path on Commit.
type outputFile struct {
	path string
	tmp  string
	file *os.File
}

func createOutput(path string) (*outputFile, error) {
	tmp := path + ".partial"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &outputFile{path: path, tmp: tmp, file: file}, nil
}

func (o *outputFile) Write(p []byte) (int, error) { return o.file.Write(p) }

func (o *outputFile) Commit() error {
	if err := o.file.Close(); err != nil {
		_ = os.Remove(o.tmp)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(o.tmp, o.path); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

// Abort discards the partial output. It is a no-op after Commit.
func (o *outputFile) Abort() {
	_ = o.file.Close()
	_ = os.Remove(o.tmp)
}
