package webhdfs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Exception class names with dedicated sentinels.
const (
	exceptionAccessControl = "AccessControlException"
	exceptionFileNotFound  = "FileNotFoundException"
)

// permissionDeniedMarker precedes the key=value argument list in an
// AccessControlException message.
const permissionDeniedMarker = "Permission denied:"

// maxErrorBodyLen caps how much of an unexpected response body is kept in a StatusError.
const maxErrorBodyLen = 512

// remoteExceptionEnvelope mirrors the gateway's error body exactly.
type remoteExceptionEnvelope struct {
	RemoteException *remoteException `json:"RemoteException"` //nolint:tagliatelle // gateway key
}

type remoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

// classifyResponse maps a gateway response to nil (success) or a typed error.
// A RemoteException in the body wins over the status code; a non-2xx status
// with any other body becomes a StatusError. Such bodies are never handed
// back as payloads, so a proxy error page on Download is an error.
func classifyResponse(status int, body []byte) error {
	if rerr := classifyBody(body); rerr != nil {
		rerr.StatusCode = status

		return rerr
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: status, Body: truncate(string(body), maxErrorBodyLen)}
	}

	return nil
}

// classifyBody returns the RemoteException carried by body, or nil when body
// is anything else. Bodies that are not JSON objects (file content, empty
// bodies) are not inspected; whether they are an error is decided by the
// status code in classifyResponse.
func classifyBody(body []byte) *RemoteError {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var env remoteExceptionEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}

	if env.RemoteException == nil {
		return nil
	}

	re := env.RemoteException
	rerr := &RemoteError{
		Exception:     re.Exception,
		JavaClassName: re.JavaClassName,
		Message:       re.Message,
	}

	switch re.Exception {
	case exceptionAccessControl:
		rerr.Args = parsePermissionArgs(re.Message)
		rerr.Err = ErrAccessControl
	case exceptionFileNotFound:
		rerr.Err = ErrFileNotFound
	default:
		rerr.Err = ErrRemote
	}

	return rerr
}

// parsePermissionArgs extracts the comma-separated key=value pairs after the
// last "Permission denied:" in message. Without the marker the whole message
// is scanned. Fragments that are not exactly one key=value pair are skipped.
//
//	"Permission denied: user=alice, access=WRITE, inode=\"/tmp\":hdfs:hdfs:drwxr-xr-x"
//	→ {"user": "alice", "access": "WRITE", "inode": "\"/tmp\":hdfs:hdfs:drwxr-xr-x"}
func parsePermissionArgs(message string) map[string]string {
	args := make(map[string]string)

	rest := message
	if i := strings.LastIndex(message, permissionDeniedMarker); i >= 0 {
		rest = message[i+len(permissionDeniedMarker):]
	}

	for _, fragment := range strings.Split(rest, ",") {
		kv := strings.Split(fragment, "=")
		if len(kv) != 2 {
			continue
		}

		args[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}

	return args
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
