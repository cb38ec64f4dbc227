// Package csvfile is the local storage sink: one append-only CSV file per
// process lifetime, named DATA<n>.CSV after the first unused n.
package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/ericogr/field-datalogger/pkg/logger"
	"github.com/ericogr/field-datalogger/pkg/output"
	"github.com/spf13/afero"
)

const maxProbe = 100000

type CSVOutput struct {
	fs             afero.Fs
	file           afero.File
	path           string
	now            func() time.Time
	printedHeaders bool
}

// New opens the next free DATA<n>.CSV in dir. If storage is unusable the
// failure is logged once and the returned sink drops every write.
func New(fs afero.Fs, dir string, now func() time.Time) *CSVOutput {
	if now == nil {
		now = time.Now
	}
	c := &CSVOutput{fs: fs, now: now}
	f, path, err := openNext(fs, dir)
	if err != nil {
		logger.ErrorWithCode(err).Str("dir", dir).Msg("Failed to initialize storage, rows will be dropped")
		return c
	}
	c.file, c.path = f, path
	logger.Info().Str("path", path).Msg("Logging to file")
	return c
}

func openNext(fs afero.Fs, dir string) (afero.File, string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, "", errors.Wrap(errors.ErrInitStorage, err)
	}
	for n := 0; n < maxProbe; n++ {
		path := filepath.Join(dir, "DATA"+strconv.Itoa(n)+".CSV")
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrInitStorage, err)
		}
		if exists {
			continue
		}
		f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrInitStorage, err)
		}
		return f, path, nil
	}
	return nil, "", errors.Newf(errors.ErrInitStorage, "no free file name in %s", dir)
}

// Path is the file being written, empty when storage is unavailable.
func (c *CSVOutput) Path() string { return c.path }

func (c *CSVOutput) OutputData(names []string, values []float64) {
	if c.file == nil {
		return
	}
	var b strings.Builder
	if !c.printedHeaders {
		b.WriteString("unixTime")
		for _, n := range names {
			b.WriteByte(',')
			b.WriteString(n)
		}
		b.WriteByte('\n')
		c.printedHeaders = true
	}
	b.WriteString(strconv.FormatInt(c.now().Unix(), 10))
	for _, v := range values {
		b.WriteByte(',')
		b.WriteString(output.FormatValue(v))
	}
	b.WriteByte('\n')
	if _, err := c.file.WriteString(b.String()); err != nil {
		logger.Warn().Err(err).Str("path", c.path).Msg("Failed to write row")
	}
}

func (c *CSVOutput) Close() error {
	if c.file == nil {
		return nil
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.path, err)
	}
	return nil
}
