package lib

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

//go:embed setup.sh
var builtinSetup []byte

const builtinSetupName = "chazz-setup.sh"

type SetupScript struct {
	Name    string
	Content []byte
}

// SetupScripts reads the configured scripts, or returns the built-in one when
// none are configured.
func SetupScripts(c SetupConfig) ([]SetupScript, error) {
	if len(c.Scripts) == 0 {
		return []SetupScript{{Name: builtinSetupName, Content: builtinSetup}}, nil
	}
	var scripts []SetupScript
	for _, p := range c.Scripts {
		data, err := os.ReadFile(p)
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		scripts = append(scripts, SetupScript{Name: filepath.Base(p), Content: data})
	}
	return scripts, nil
}

// SetupMarker identifies a setup run: the scripts that ran and the boot they
// ran in. A stop and start changes the launch time, so setup runs again.
func SetupMarker(scripts []SetupScript, launched time.Time) string {
	h := sha256.New()
	for _, script := range scripts {
		_, _ = h.Write([]byte(script.Name))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(script.Content)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%s@%d", hex.EncodeToString(h.Sum(nil))[:16], launched.Unix())
}

func remoteScriptPath(remoteDir, name string) string {
	if remoteDir == "" {
		return name
	}
	return path.Join(remoteDir, name)
}

// RunSetup copies each setup script to the instance and runs it with sh, then
// records the marker tag. Instances already carrying a matching marker are
// skipped unless force is set.
func RunSetup(ctx context.Context, runner Runner, api EC2API, config *Config, instance Instance, force bool) error {
	scripts, err := SetupScripts(config.Setup)
	if err != nil {
		return err
	}
	marker := SetupMarker(scripts, instance.LaunchTime)
	if !force && !config.Setup.Force && instance.Tags[TagSetup] == marker {
		Logger.Println("setup already done on", instance.ID)
		return nil
	}
	tmp, err := os.MkdirTemp("", "chazz-setup-")
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	defer func() { _ = os.RemoveAll(tmp) }()
	if config.Setup.RemoteDir != "" {
		err = runner.Run(ctx, SSHCommand(config.SSH, instance.Address, "mkdir", "-p", config.Setup.RemoteDir))
		if err != nil {
			return err
		}
	}
	for _, script := range scripts {
		local := filepath.Join(tmp, script.Name)
		err = os.WriteFile(local, script.Content, 0o600)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
		remote := remoteScriptPath(config.Setup.RemoteDir, script.Name)
		Logger.Println("running setup script", script.Name, "on", instance.ID)
		err = runner.Run(ctx, ScpCommand(config.SSH, instance.Address, local, remote))
		if err != nil {
			return err
		}
		err = runner.Run(ctx, SSHCommand(config.SSH, instance.Address, "sh", remote))
		if err != nil {
			return fmt.Errorf("setup script %s failed: %w", script.Name, err)
		}
	}
	_, err = api.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{instance.ID},
		Tags: []ec2types.Tag{
			{Key: aws.String(TagSetup), Value: aws.String(marker)},
		},
	})
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	return nil
}
