package chat

import (
	"encoding/json"
	"fmt"
)

const defaultSpreadsheetName = "export.xlsx"

type askResponse struct {
	Answer string `json:"answer"`
}

type visualsResponse struct {
	ResponseType      string   `json:"response_type"`
	Message           string   `json:"message"`
	Task              string   `json:"task"`
	VisualizationType string   `json:"visualization_type"`
	Images            []string `json:"images"`
}

type excelResponse struct {
	ResponseType string `json:"response_type"`
	Message      string `json:"message"`
	Filename     string `json:"filename"`
	FileBase64   string `json:"file_base64"`
}

func normalizeAsk(data []byte) (Reply, error) {
	var resp askResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Reply{}, fmt.Errorf("decode ask response: %w", err)
	}
	return Reply{Text: resp.Answer}, nil
}

func normalizeVisuals(data []byte) (Reply, error) {
	var resp visualsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Reply{}, fmt.Errorf("decode visuals response: %w", err)
	}
	if resp.ResponseType != "viz" {
		return Reply{Text: resp.Message}, nil
	}

	text := resp.Message
	if text == "" {
		text = fmt.Sprintf("Generated %s: %s", resp.VisualizationType, resp.Task)
	}
	reply := Reply{Text: text}
	for _, img := range resp.Images {
		if img == "" {
			continue
		}
		reply.Images = append(reply.Images, img)
	}
	return reply, nil
}

func normalizeExcel(data []byte) (Reply, error) {
	var resp excelResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Reply{}, fmt.Errorf("decode excel response: %w", err)
	}
	if resp.ResponseType != "excel" {
		return Reply{Text: resp.Message}, nil
	}

	text := resp.Message
	if text == "" {
		text = "Excel file generated."
	}
	reply := Reply{Text: text}
	if resp.FileBase64 != "" {
		name := resp.Filename
		if name == "" {
			name = defaultSpreadsheetName
		}
		reply.File = &File{Name: name, Data: resp.FileBase64}
	}
	return reply, nil
}
