package deploy

import (
	"context"
	"fmt"
	"io"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/log"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/sirupsen/logrus"
)

// ImageBuild is the runner behind a build-only service: it builds a local
// context into a tagged image and is done. Dependents reference the tag as
// their image. It has no probe, the supervisor counts it healthy once
// Start returned.
type ImageBuild struct {
	cfg    config.Build
	logger *logrus.Entry
}

// NewImageBuild creates a runner for a build declaration
func NewImageBuild(cfg config.Build) *ImageBuild {
	return &ImageBuild{
		cfg:    cfg,
		logger: log.PrefixedLog("deploy"),
	}
}

// Start implements `supervisor.Runner`.
func (b *ImageBuild) Start(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("can't create docker client: %w", err)
	}

	defer cli.Close()

	buildContext, err := archive.TarWithOptions(b.cfg.Context, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("can't archive build context '%s': %w", b.cfg.Context, err)
	}

	defer buildContext.Close()

	resp, err := cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Dockerfile: b.cfg.Dockerfile,
		Tags:       []string{b.cfg.Tag},
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("can't build image '%s': %w", b.cfg.Tag, err)
	}

	defer resp.Body.Close()

	// the build streams progress as JSON messages, an error message in
	// the stream means the build failed after the request succeeded
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("image build '%s' failed: %w", b.cfg.Tag, err)
	}

	b.logger.Infof("built image '%s' from '%s'", b.cfg.Tag, b.cfg.Context)

	return nil
}

// Stop implements `supervisor.Runner`. The built image stays available,
// tearing down a run never untags artifacts.
func (b *ImageBuild) Stop(_ context.Context) error {
	return nil
}
