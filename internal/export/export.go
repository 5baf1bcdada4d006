package export

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ragchat/internal/chat"
)

// Saver delivers binary payloads from assistant replies to the local
// filesystem and writes markdown exports of whole transcripts.
type Saver struct {
	downloadDir string
	exportDir   string
}

func New(downloadDir, exportDir string) *Saver {
	return &Saver{
		downloadDir: strings.TrimSpace(downloadDir),
		exportDir:   strings.TrimSpace(exportDir),
	}
}

// SaveSpreadsheet decodes the base64 xlsx payload and writes it under
// the download directory, keeping the suggested filename unless it
// would overwrite an existing file.
func (s *Saver) SaveSpreadsheet(f *chat.File) (string, error) {
	if f == nil || f.Data == "" {
		return "", fmt.Errorf("no spreadsheet payload")
	}
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return "", fmt.Errorf("decode spreadsheet payload: %w", err)
	}

	name := safeFileName(f.Name)
	if name == "" {
		name = "export.xlsx"
	}
	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	path := collisionFreePath(s.downloadDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write spreadsheet: %w", err)
	}
	return path, nil
}

// SaveImages writes each base64 PNG to <stem>-<n>.png under the
// download directory and returns the written paths.
func (s *Saver) SaveImages(stem string, images []string) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	stem = safeFileName(stem)
	if stem == "" {
		stem = "chart"
	}

	paths := make([]string, 0, len(images))
	for i, img := range images {
		raw, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return paths, fmt.Errorf("decode image %d: %w", i+1, err)
		}
		path := collisionFreePath(s.downloadDir, fmt.Sprintf("%s-%d.png", stem, i+1))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return paths, fmt.Errorf("write image %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Saver) ExportTranscript(sessionID string, transcript []chat.Message, now time.Time) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Chat session " + sessionID + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString(BuildTranscriptMarkdown(transcript))

	name := safeFileName(sessionID)
	if name == "" {
		name = "session"
	}
	path := filepath.Join(s.exportDir, name+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func BuildTranscriptMarkdown(transcript []chat.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		switch m.Role {
		case chat.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}
		text := strings.TrimSpace(m.Text)
		if text != "" {
			b.WriteString(text + "\n\n")
		}
		switch m.Attachment() {
		case chat.AttachmentImages:
			if len(m.Images) == 1 {
				b.WriteString("_[1 chart image attached]_\n\n")
			} else {
				b.WriteString(fmt.Sprintf("_[%d chart images attached]_\n\n", len(m.Images)))
			}
		case chat.AttachmentFile:
			b.WriteString(fmt.Sprintf("_[spreadsheet attached: %s]_\n\n", m.File.Name))
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func collisionFreePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}
