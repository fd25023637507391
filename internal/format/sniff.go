package format

import (
	"bufio"
	"bytes"
	"os"
	"strings"
)

// Sniff reads up to the first 50 lines of path and guesses a format name
// from magic bytes and textual markers, the way the original content-sniff
// helper does. It returns "" when nothing matches.
func Sniff(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var head [4]byte
	n, _ := f.Read(head[:])
	head4 := head[:n]

	if name := sniffMagic(head4); name != "" {
		return name
	}

	if _, err := f.Seek(0, 0); err != nil {
		return ""
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNo := 0
	for scanner.Scan() && lineNo < 50 {
		line := scanner.Text()
		lineNo++

		if lineNo == 1 {
			if strings.HasPrefix(line, "%!PS-Adobe") {
				fields := strings.Fields(line)
				for _, tok := range fields[1:] {
					if strings.Contains(tok, "EPSF") {
						return "eps"
					}
				}
				return "ps"
			}
		}

		if name := sniffLineMarker(line); name != "" {
			return name
		}
	}

	return ""
}

// sniffMagic checks the fixed-offset byte/text magics that only make sense
// at the very start of the file.
func sniffMagic(head []byte) string {
	switch {
	case len(head) >= 2 && head[0] == 0x1F && head[1] == 0x8B:
		return "gzip"
	case len(head) >= 2 && head[0] == 'P' && head[1] == 'K':
		return "zip"
	case len(head) >= 2 && head[0] == 0x1F && head[1] == 0x9D:
		return "compress"
	case len(head) >= 2 && head[0] == 'B' && head[1] == 'M':
		return "bmp"
	case len(head) >= 2 && head[0] == 0x01 && head[1] == 0xDA:
		return "sgi"
	case len(head) >= 2 && head[0] == 'P' && head[1] >= '1' && head[1] <= '6':
		switch head[1] {
		case '1', '4':
			return "pbm"
		case '2', '5':
			return "pgm"
		case '3', '6':
			return "ppm"
		}
	case len(head) >= 2 && (bytes.Equal(head[:2], []byte("II")) || bytes.Equal(head[:2], []byte("MM"))):
		return "tiff"
	case len(head) >= 4 && bytes.Equal(head, []byte{0x00, 0x00, 0x00, 0x69}):
		return "xwd"
	}
	return ""
}

// sniffLineMarker checks the textual markers that may appear on any of the
// first 50 lines.
func sniffLineMarker(line string) string {
	switch {
	case strings.Contains(line, "%TGIF"):
		return "tgif"
	case strings.Contains(line, "#FIG"):
		return "fig"
	case strings.Contains(line, "GIF"):
		return "gif"
	case strings.Contains(line, "EPSF"):
		return "eps"
	case strings.Contains(line, "Grace"):
		return "agr"
	case strings.Contains(line, "JFIF"):
		return "jpg"
	case strings.Contains(line, "%PDF"):
		return "pdf"
	case strings.Contains(line, "PNG"):
		return "png"
	case strings.Contains(line, "_bits[]"):
		return "xbm"
	case strings.Contains(line, "XPM"), strings.Contains(line, "static char *"):
		return "xpm"
	case strings.Contains(line, "BITPIX"):
		return "fits"
	}
	return ""
}
