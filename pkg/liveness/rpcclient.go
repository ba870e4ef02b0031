package liveness

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// rpcClient is adapted from the teacher's pkg/monitoring/detector/rpc_client.go:
// a minimal hand-rolled JSON-RPC client over stdlib net/http. The teacher
// never reaches for go-ethereum's own RPC client even though go-ethereum is
// a direct dependency (used there for precompile address/ABI constants
// only); this probe follows the same choice.
type rpcClient struct {
	url    string
	client *http.Client
}

func newRPCClient(url string) *rpcClient {
	return &rpcClient{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type callObject struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// EthCall issues an eth_call against to with calldata data (both already
// hex-encoded, 0x-prefixed) and returns the hex-decoded result bytes.
func (c *rpcClient) EthCall(ctx context.Context, to, data string) ([]byte, error) {
	result, err := c.call(ctx, "eth_call", []interface{}{
		callObject{To: to, Data: data}, "latest",
	})
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(result, "0x"))
}

func (c *rpcClient) call(ctx context.Context, method string, params []interface{}) (string, error) {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return "", fmt.Errorf("liveness: marshaling rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("liveness: building rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("liveness: rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("liveness: reading rpc response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return "", fmt.Errorf("liveness: parsing rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("liveness: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
