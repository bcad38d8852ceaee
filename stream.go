// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// streamCheckRows is how often the consumer polls for cancellation
	// and reports progress.
	streamCheckRows    = 100
	streamChannelDepth = 256
)

// StreamOptions configure the chunked delimited parse.
type StreamOptions struct {
	// Delimiter defaults to comma.
	Delimiter rune
	// NoHeader treats the first record as data and synthesizes
	// "Column 1".."Column N" names from its width.
	NoHeader       bool
	SkipEmptyLines bool
	TrimValues     bool
	// MaxRows stops the parse early and flags truncation.
	MaxRows int
	// Progress receives percentages 0 to 100 as input is consumed. The
	// callback runs on the parsing goroutine and must be fast.
	Progress func(pct int)
}

// countingReader tracks consumed bytes so progress derives from input
// position rather than row counts.
type countingReader struct {
	r     io.Reader
	read  int64
	total int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.read += int64(n)
	return n, err
}

// progress reports the consumed fraction as 0 to 100. Unknown totals
// stay at zero until completion.
func (cr *countingReader) progress() int {
	if cr.total <= 0 {
		return 0
	}
	pct := int(cr.read * 100 / cr.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ParseCSVStream parses large delimited input without ever holding the
// whole text: a producer goroutine reads records into a bounded channel
// while the consumer assembles rows, reports progress and polls for
// cancellation between batches. Cancellation rejects with a TimeoutError
// rather than returning partial data. size is the total input length for
// progress purposes; pass zero when unknown.
func (c *Converter) ParseCSVStream(ctx context.Context, r io.Reader, size int64, opts StreamOptions) (*TabularData, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	jobID := uuid.NewString()[:8]
	log := c.log.WithFields(logrus.Fields{"job": jobID, "size": size})

	cr := &countingReader{r: r, total: size}
	reader := csv.NewReader(cr)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	type record struct {
		cells []string
		err   error
	}
	records := make(chan record, streamChannelDepth)
	prodCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		defer close(records)
		for {
			cells, err := reader.Read()
			if err == io.EOF {
				return
			}
			select {
			case records <- record{cells: cells, err: err}:
			case <-prodCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	t := emptyTable(FormatCSV)
	var rawHeaders []string
	seen := 0

	for rec := range records {
		if rec.err != nil {
			pe := &ParseError{Format: FormatCSV, Code: CodeInvalidCSV, Err: rec.err}
			var cerr *csv.ParseError
			if errors.As(rec.err, &cerr) {
				pe.Line = cerr.Line
			}
			return nil, pe
		}
		seen++

		if seen%streamCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				log.Warn("stream parse cancelled")
				return nil, &TimeoutError{Op: "stream parse", Err: err}
			}
			if opts.Progress != nil {
				opts.Progress(cr.progress())
			}
		}

		if opts.SkipEmptyLines && recordEmpty(rec.cells) {
			continue
		}

		if rawHeaders == nil {
			if opts.NoHeader {
				rawHeaders = syntheticHeaders(len(rec.cells))
				t.Headers = dedupeHeaders(rawHeaders)
			} else {
				rawHeaders = append([]string(nil), rec.cells...)
				if opts.TrimValues {
					for i, h := range rawHeaders {
						rawHeaders[i] = strings.TrimSpace(h)
					}
				}
				t.Headers = dedupeHeaders(rawHeaders)
				continue
			}
		}

		row := make(Row, len(rawHeaders))
		for i, cell := range rec.cells {
			if i >= len(rawHeaders) {
				break
			}
			if opts.TrimValues {
				cell = strings.TrimSpace(cell)
			}
			row[rawHeaders[i]] = cell
		}
		t.Rows = append(t.Rows, row)

		if opts.MaxRows > 0 && len(t.Rows) >= opts.MaxRows {
			t.Meta.Truncated = true
			stop()
			break
		}
	}

	// A final check covers inputs smaller than the poll window.
	if err := ctx.Err(); err != nil {
		return nil, &TimeoutError{Op: "stream parse", Err: err}
	}

	if opts.Progress != nil {
		opts.Progress(100)
	}
	log.WithFields(logrus.Fields{
		"rows":      len(t.Rows),
		"truncated": t.Meta.Truncated,
	}).Debug("stream parse complete")
	return t.finalize(), nil
}
