package file

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultHostsPath is the system hosts file.
const DefaultHostsPath = "/etc/hosts"

// Loopback is the address the server's own public name is pinned to.
const Loopback = "127.0.0.1"

// Status is the outcome of ensuring a hosts entry.
type Status int

const (
	NoOp Status = iota
	Applied
)

func (s Status) String() string {
	if s == Applied {
		return "applied"
	}
	return "noop"
}

// FS is the file access the hosts entry needs. OS uses the local disk;
// the ssh package provides one over SFTP.
type FS interface {
	ReadFile(path string) ([]byte, error)
	AppendFile(path string, data []byte) error
}

// OS is the local filesystem.
type OS struct{}

func (OS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OS) AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteError means the hosts file could not be read or appended to.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("hosts file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// HostsEntry is one "ip hostname" mapping.
type HostsEntry struct {
	Path     string
	IP       string
	Hostname string
	// Unique checks for an existing mapping before appending, so repeated
	// runs never add a second copy. Without it the line is always appended.
	Unique bool
}

// Ensure appends the entry unless it is already present. A missing hosts
// file is treated as empty and created.
func (h HostsEntry) Ensure(fsys FS) (Status, error) {
	path := h.Path
	if path == "" {
		path = DefaultHostsPath
	}
	if strings.TrimSpace(h.IP) == "" || strings.TrimSpace(h.Hostname) == "" {
		return NoOp, fmt.Errorf("hosts entry requires ip and hostname")
	}

	data, err := fsys.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NoOp, &WriteError{Path: path, Err: err}
	}

	if h.Unique && hasMapping(data, h.IP, h.Hostname) {
		return NoOp, nil
	}

	var line bytes.Buffer
	if len(data) > 0 && data[len(data)-1] != '\n' {
		line.WriteByte('\n')
	}
	fmt.Fprintf(&line, "%s %s\n", h.IP, h.Hostname)
	if err := fsys.AppendFile(path, line.Bytes()); err != nil {
		return NoOp, &WriteError{Path: path, Err: err}
	}
	return Applied, nil
}

// hasMapping reports whether any line maps ip to hostname, either as the
// canonical name or as an alias.
func hasMapping(data []byte, ip, hostname string) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != ip {
			continue
		}
		for _, name := range fields[1:] {
			if strings.EqualFold(name, hostname) {
				return true
			}
		}
	}
	return false
}
