package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var colorRed = string("\033[31m")

type apiError struct {
	Message string `json:"message"`
}

func getServerAddr() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	address, ok := state["rpcserver"]
	if !ok {
		return "", fmt.Errorf("set rpcserver with `config set rpcserver`")
	}
	return strings.TrimSuffix(address, "/"), nil
}

func callDaemon(method, path string, body interface{}) ([]byte, error) {
	addr, err := getServerAddr()
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, addr+path, payload)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cosigner daemon: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := apiError{}
		if err := json.Unmarshal(data, &apiErr); err == nil && len(apiErr.Message) > 0 {
			return nil, fmt.Errorf("%s", apiErr.Message)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return data, nil
}

func callResponseBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := apiError{}
		if err := json.Unmarshal(data, &apiErr); err == nil && len(apiErr.Message) > 0 {
			return nil, fmt.Errorf("%s", apiErr.Message)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return data, nil
}

func filenameFromHeader(contentDisposition, fallback string) string {
	const marker = "filename="
	if idx := strings.Index(contentDisposition, marker); idx >= 0 {
		name := strings.Trim(contentDisposition[idx+len(marker):], `"`)
		if len(name) > 0 {
			return filepath.Base(name)
		}
	}
	return fallback
}

func getState() (map[string]string, error) {
	file, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeState(initialState); err != nil {
			return nil, err
		}
		return initialState, nil
	}

	data := map[string]string{}
	json.Unmarshal(file, &data)
	return data, nil
}

func setState(partialState map[string]string) error {
	state, err := getState()
	if err != nil {
		return err
	}

	for key, value := range partialState {
		state[key] = value
	}
	return writeState(state)
}

func writeState(state map[string]string) error {
	dir := filepath.Dir(statePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}

	buf, _ := json.MarshalIndent(state, "", "  ")
	if err := os.WriteFile(statePath, buf, 0755); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func jsonResponse(data []byte) string {
	out := bytes.Buffer{}
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return out.String()
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(err.Error()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
