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

// StreamInfo holds metadata about the input being parsed.
type StreamInfo struct {
	// MIMEType is the declared content type, without parameters.
	MIMEType string
	// Extension is the lowercased filename extension including the dot.
	Extension string
	// Charset is the declared text encoding, if any.
	Charset string
	// Filename is the original name of the input, if known.
	Filename string
	// FileSize is the input length in bytes, zero when unknown.
	FileSize int64
	// LocalPath is the path the input was read from, if any.
	LocalPath string
	// URL is the source location for fetched input.
	URL string
}

// Decoder is the interface all format parsers implement.
type Decoder interface {
	// Accepts reports whether this decoder handles input with the given
	// metadata. It must not inspect content.
	Accepts(info StreamInfo) bool

	// Sniff reports whether raw content looks like this decoder's
	// format. The detection chain calls Sniff in registration priority
	// order and stops at the first true.
	Sniff(data []byte) bool

	// Decode parses raw input into the canonical tabular model.
	Decode(data []byte, opts ParseOptions) (*TabularData, error)
}

// Encoder is the interface all format writers implement. Encoders are
// pure functions of headers, rows and options; they never mutate their
// input.
type Encoder interface {
	Encode(t *TabularData, opts ConvertOptions) ([]byte, error)
}
