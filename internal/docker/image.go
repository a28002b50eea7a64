// image.go handles image availability for image-pattern environments.
package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"

	"github.com/mmr-tortoise/spate/internal/model"
)

// EnsureImage makes sure the given image reference exists locally,
// pulling it from the registry when it does not.
//
// The pull progress stream is drained (not displayed) because spate runs
// non-interactively in scripts; progress reporting would interleave badly
// with structured log output. The stream must still be read to EOF or the
// daemon may cancel the pull.
func EnsureImage(ctx context.Context, cli *Client, imageRef string) error {
	// ImageInspect succeeds only when the image is present locally.
	_, err := cli.Inner().ImageInspect(ctx, imageRef)
	if err == nil {
		cli.log.Debug().Str("image", imageRef).Msg("image present locally")
		return nil
	}

	return PullImage(ctx, cli, imageRef)
}

// PullImage pulls the given image reference unconditionally, even when a
// copy already exists locally.
func PullImage(ctx context.Context, cli *Client, imageRef string) error {
	cli.log.Info().Str("image", imageRef).Msg("pulling image")

	reader, err := cli.Inner().ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull image %q", imageRef),
			err,
		)
	}
	defer func() { _ = reader.Close() }()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("error reading pull output for image %q", imageRef),
			err,
		)
	}

	cli.log.Info().Str("image", imageRef).Msg("image pulled")
	return nil
}
