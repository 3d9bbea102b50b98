package lib

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func testSSHConfig() SSHConfig {
	return SSHConfig{
		User:        "centos",
		Key:         "/keys/hb.pem",
		Port:        22,
		Options:     []string{"-o", "StrictHostKeyChecking=no"},
		WaitSeconds: 1,
	}
}

func TestSSHCommand(t *testing.T) {
	c := testSSHConfig()
	cmd := SSHCommand(c, "ec2-1.compute.amazonaws.com")
	assert.Equal(t, []string{
		"ssh", "-i", "/keys/hb.pem", "-o", "IdentitiesOnly=yes",
		"-o", "StrictHostKeyChecking=no",
		"centos@ec2-1.compute.amazonaws.com",
	}, cmd.Argv())

	cmd = SSHCommand(c, "host", "ls", "-la", "my dir")
	assert.Equal(t, "ls -la 'my dir'", cmd.Args[len(cmd.Args)-1])

	c.Key = ""
	c.Port = 2222
	c.Options = nil
	cmd = SSHCommand(c, "host")
	assert.Equal(t, []string{"ssh", "-p", "2222", "centos@host"}, cmd.Argv())
}

func TestScpCommand(t *testing.T) {
	c := testSSHConfig()
	c.Port = 2222
	cmd := ScpCommand(c, "host", "/tmp/setup.sh", "setup/setup.sh")
	assert.Equal(t, []string{
		"scp", "-i", "/keys/hb.pem", "-o", "IdentitiesOnly=yes", "-P", "2222",
		"-o", "StrictHostKeyChecking=no",
		"/tmp/setup.sh", "centos@host:setup/setup.sh",
	}, cmd.Argv())
}

func TestRsyncCommand(t *testing.T) {
	c := testSSHConfig()
	s := SyncConfig{Dest: "work", Exclude: []string{".git", "build"}, Watcher: "watchexec"}
	cmd := RsyncCommand(c, s, "host", "src/", "")
	assert.Equal(t, []string{
		"rsync", "-az", "--delete",
		"--exclude", ".git", "--exclude", "build",
		"-e", "ssh -i /keys/hb.pem -o IdentitiesOnly=yes -o StrictHostKeyChecking=no",
		"src/", "centos@host:work",
	}, cmd.Argv())

	cmd = RsyncCommand(c, s, "host", "src/", "elsewhere")
	assert.Equal(t, "centos@host:elsewhere", cmd.Args[len(cmd.Args)-1])
}

func TestWatchCommand(t *testing.T) {
	s := SyncConfig{Dest: "work", Exclude: []string{".git"}, Watcher: "watchexec"}
	sync := &RunOptions{Name: "rsync", Args: []string{"-az", "src/", "centos@host:work"}}
	cmd := WatchCommand(s, "src/", sync)
	assert.Equal(t, []string{
		"watchexec", "--watch", "src/", "--ignore", ".git", "--",
		"rsync", "-az", "src/", "centos@host:work",
	}, cmd.Argv())
}

func TestWaitSSHTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	c := testSSHConfig()
	c.Key = ""
	c.Port = ln.Addr().(*net.TCPAddr).Port
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, WaitSSH(ctx, c, "127.0.0.1"))
}

func TestWaitSSHCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	c := testSSHConfig()
	c.Key = ""
	c.Port = port
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = WaitSSH(ctx, c, "127.0.0.1")
	assert.Error(t, err)
}

// rejectingSSHServer runs an ssh server on localhost that refuses every key.
func rejectingSSHServer(t *testing.T) int {
	t.Helper()
	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, errors.New("key not authorized")
		},
	}
	config.AddHostKey(signer)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				_, _, _, _ = ssh.NewServerConn(conn, config)
				_ = conn.Close()
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeClientKey(t *testing.T) string {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(key, "")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestWaitSSHRejectedKey(t *testing.T) {
	c := testSSHConfig()
	c.Options = nil
	c.Port = rejectingSSHServer(t)
	c.Key = writeClientKey(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()
	err := WaitSSH(ctx, c, "127.0.0.1")
	assert.ErrorIs(t, err, ErrSSHAuth)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "unable to authenticate")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIsSSHAuthError(t *testing.T) {
	assert.False(t, isSSHAuthError(nil))
	assert.False(t, isSSHAuthError(errors.New("dial tcp 127.0.0.1:22: connect: connection refused")))
	assert.True(t, isSSHAuthError(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey], no supported methods remain")))
}
