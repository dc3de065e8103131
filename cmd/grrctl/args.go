package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grr-tools/grrctl/internal/apiclient"
)

// parseParams turns key=value arguments into query parameters.
func parseParams(args []string) (apiclient.Params, error) {
	params := apiclient.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}

// parsePayload decodes --data: inline JSON, @file, or an empty object.
func parsePayload(data string) (any, error) {
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// openFiles opens key=path uploads. The returned function closes them.
func openFiles(specs []string) (apiclient.Files, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	if len(specs) == 0 {
		return nil, closeAll, nil
	}

	files := apiclient.Files{}
	for _, spec := range specs {
		key, path, ok := strings.Cut(spec, "=")
		if !ok || key == "" || path == "" {
			closeAll()
			return nil, func() {}, fmt.Errorf("file %q is not key=path", spec)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open upload: %w", err)
		}
		opened = append(opened, f)
		files[key] = apiclient.File{Name: filepath.Base(path), Content: f}
	}
	return files, closeAll, nil
}

func writeBody(w io.Writer, resp *apiclient.Response) error {
	if _, err := w.Write(resp.Body); err != nil {
		return err
	}
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

func writeHeaders(w io.Writer, resp *apiclient.Response) error {
	if _, err := fmt.Fprintf(w, "%d %s\n", resp.Status, http.StatusText(resp.Status)); err != nil {
		return err
	}
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, v); err != nil {
				return err
			}
		}
	}
	return nil
}
