package electrumd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// rpcClient is a JSON RPC client (over HTTP(s)) talking to the wallet
// daemon.
type rpcClient struct {
	serverAddr string
	httpClient *http.Client
	timeout    int
}

type rpcRequest struct {
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Id      int64       `json:"id"`
	JsonRpc string      `json:"jsonrpc"`
}

type rpcResponse struct {
	Id     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Err    *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newRpcClient(addr string, timeout int) (*rpcClient, error) {
	var httpClient *http.Client

	useSSL := strings.HasPrefix(addr, "https")
	if useSSL {
		// #nosec
		t := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		httpClient = &http.Client{Transport: t}
	} else {
		httpClient = &http.Client{}
	}

	c := &rpcClient{
		serverAddr: addr,
		httpClient: httpClient,
		timeout:    timeout,
	}

	if err := c.call(
		context.Background(), "version", nil, new(interface{}),
	); err != nil {
		return nil, fmt.Errorf("failed to connect to wallet daemon at %s", addr)
	}

	return c, nil
}

func (c *rpcClient) call(
	ctx context.Context, method string, params interface{}, out interface{},
) error {
	rpcR := rpcRequest{method, params, time.Now().UnixNano(), "2.0"}
	payloadBuffer := &bytes.Buffer{}
	if err := json.NewEncoder(payloadBuffer).Encode(rpcR); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(
		ctx, time.Duration(c.timeout)*time.Second,
	)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodPost, c.serverAddr, payloadBuffer,
	)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json;charset=utf-8")
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"method %s failed with status %d", method, resp.StatusCode,
		)
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return err
	}
	if rr.Err != nil {
		return fmt.Errorf("method %s failed with error: %s", method, rr.Err.Message)
	}

	if out != nil {
		return json.Unmarshal(rr.Result, out)
	}
	return nil
}
