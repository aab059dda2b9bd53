package ctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Send delivers req to the daemon listening on path. A response carrying an
// error string is returned as an error alongside the response.
func Send(path string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w (is miclock running?)", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
