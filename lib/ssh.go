package lib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/kballard/go-shellquote"
	"golang.org/x/crypto/ssh"
)

const sshDialTimeout = 5 * time.Second

func sshTarget(c SSHConfig, host string) string {
	return c.User + "@" + host
}

// sshFlags are the connection flags shared by ssh and the rsync transport.
func sshFlags(c SSHConfig, portFlag string) []string {
	var flags []string
	if c.Key != "" {
		flags = append(flags, "-i", c.Key, "-o", "IdentitiesOnly=yes")
	}
	if c.Port != 0 && c.Port != 22 {
		flags = append(flags, portFlag, strconv.Itoa(c.Port))
	}
	return append(flags, c.Options...)
}

// SSHCommand connects to host, running remote when given and logging in otherwise.
func SSHCommand(c SSHConfig, host string, remote ...string) *RunOptions {
	args := sshFlags(c, "-p")
	args = append(args, sshTarget(c, host))
	if len(remote) > 0 {
		args = append(args, shellquote.Join(remote...))
	}
	return &RunOptions{Name: "ssh", Args: args}
}

// ScpCommand copies a local file to dest on host.
func ScpCommand(c SSHConfig, host, src, dest string) *RunOptions {
	args := sshFlags(c, "-P")
	args = append(args, src, sshTarget(c, host)+":"+dest)
	return &RunOptions{Name: "scp", Args: args}
}

// RsyncCommand mirrors src to the sync destination on host, deleting remote
// files that no longer exist locally.
func RsyncCommand(c SSHConfig, s SyncConfig, host, src, dest string) *RunOptions {
	if dest == "" {
		dest = s.Dest
	}
	args := []string{"-az", "--delete"}
	for _, pattern := range s.Exclude {
		args = append(args, "--exclude", pattern)
	}
	args = append(args, s.Options...)
	transport := append([]string{"ssh"}, sshFlags(c, "-p")...)
	args = append(args, "-e", shellquote.Join(transport...))
	args = append(args, src, sshTarget(c, host)+":"+dest)
	return &RunOptions{Name: "rsync", Args: args}
}

// WatchCommand wraps a sync command in the configured file watcher so it runs
// once now and again on every change under src.
func WatchCommand(s SyncConfig, src string, sync *RunOptions) *RunOptions {
	args := []string{"--watch", src}
	for _, pattern := range s.Exclude {
		args = append(args, "--ignore", pattern)
	}
	args = append(args, "--")
	args = append(args, sync.Argv()...)
	return &RunOptions{Name: s.Watcher, Args: args}
}

// WaitSSH blocks until host accepts ssh connections, probing every
// ssh.wait_seconds. With a key configured the probe is a full handshake,
// otherwise a tcp connect. There is no timeout, cancel ctx to give up. A
// rejected key will not fix itself and fails with ErrSSHAuth.
func WaitSSH(ctx context.Context, c SSHConfig, host string) error {
	addr := net.JoinHostPort(host, strconv.Itoa(c.Port))
	probe := func() error { return tcpProbe(ctx, addr) }
	if c.Key != "" {
		config, err := sshClientConfig(c)
		if err != nil {
			Logger.Println("cannot use key for ssh probe, falling back to tcp:", err)
		} else {
			probe = func() error { return sshProbe(ctx, addr, config) }
		}
	}
	var failure error
	err := retry.Do(
		func() error {
			err := probe()
			if isSSHAuthError(err) {
				failure = fmt.Errorf("%w: %s@%s with %s: %v", ErrSSHAuth, c.User, host, c.Key, err)
				return failure
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(forever),
		retry.Delay(time.Duration(c.WaitSeconds)*time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return failure == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			if failure == nil {
				Logger.Printf("%s not yet up on port %d: %s\n", host, c.Port, err)
			}
		}),
	)
	if failure != nil {
		Logger.Println("error:", failure)
		return failure
	}
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	return nil
}

// isSSHAuthError matches the handshake error x/crypto/ssh returns once every
// auth method has been refused.
func isSSHAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

func tcpProbe(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: sshDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func sshClientConfig(c SSHConfig) (*ssh.ClientConfig, error) {
	data, err := os.ReadFile(c.Key)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if errors.As(err, &passErr) {
			return nil, fmt.Errorf("key %s is passphrase protected", c.Key)
		}
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		Timeout:         sshDialTimeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func sshProbe(ctx context.Context, addr string, config *ssh.ClientConfig) error {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return err
	}
	client := ssh.NewClient(c, chans, reqs)
	defer func() { _ = client.Close() }()
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	return session.Run("true")
}
