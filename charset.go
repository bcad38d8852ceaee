package tabular

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// decodeText turns raw bytes into UTF-8 text, honoring an explicit
// charset hint before falling back to detection.
func decodeText(data []byte, charsetHint string) string {
	if charsetHint != "" {
		if enc := lookupEncoding(charsetHint); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
	}
	return decodeWithDetection(data)
}

// decodeWithDetection guesses the encoding of data and decodes it to
// UTF-8. Valid UTF-8 passes through untouched.
func decodeWithDetection(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	detector := chardet.NewTextDetector()
	results, err := detector.DetectAll(data)
	if err != nil || len(results) == 0 {
		return string(data)
	}

	bestScore := -1 << 30
	bestText := ""
	for _, r := range results {
		enc := lookupEncoding(r.Charset)
		if enc == nil {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(decoded)
		if score := scoreDecodedText(text, r.Confidence); score > bestScore {
			bestScore = score
			bestText = text
		}
	}
	if bestText == "" {
		return string(data)
	}
	return bestText
}

// scoreDecodedText ranks candidate decodings. Replacement and control
// characters indicate the wrong table; CJK output from a CJK-capable
// encoding usually indicates the right one.
func scoreDecodedText(text string, confidence int) int {
	score := confidence
	for _, r := range text {
		switch {
		case r == '�':
			score -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			score -= 5
		case r >= 0x3040 && r <= 0x30FF:
			score += 3
		case r >= 0x4E00 && r <= 0x9FFF:
			score += 2
		case r >= 'A' && r <= 'z':
			score++
		}
	}
	return score
}

// lookupEncoding maps charset names to decoders. Names compare with
// separators stripped, covering the variants detectors and HTTP headers
// report.
func lookupEncoding(charset string) encoding.Encoding {
	normalized := strings.ToLower(charset)
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")
	switch normalized {
	case "utf8", "ascii", "usascii":
		return unicode.UTF8
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "iso88591", "latin1":
		return charmap.ISO8859_1
	case "iso88592":
		return charmap.ISO8859_2
	case "iso885915":
		return charmap.ISO8859_15
	case "windows1250", "cp1250":
		return charmap.Windows1250
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "windows1252", "cp1252":
		return charmap.Windows1252
	case "koi8r":
		return charmap.KOI8R
	case "shiftjis", "sjis", "cp932", "windows31j":
		return japanese.ShiftJIS
	case "eucjp":
		return japanese.EUCJP
	case "iso2022jp":
		return japanese.ISO2022JP
	case "euckr", "cp949":
		return korean.EUCKR
	case "gb2312", "gbk", "cp936", "gb18030":
		return simplifiedchinese.GBK
	case "big5", "cp950":
		return traditionalchinese.Big5
	}
	return nil
}
