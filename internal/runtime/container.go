package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// A running build container backed by containerd.
type Container struct {
	client   *containerd.Client // Containerd client for managing the container.
	id       string             // Containerd container ID.
	platform ocispec.Platform   // Platform the image was unpacked for.
}

// Returns the container ID.
func (c *Container) ID() string {
	return c.id
}

// Stops the container's task.
//
// The running task is killed and deleted. The container metadata is preserved.
// Calling Stop on an already-stopped container is not an error.
func (c *Container) Stop(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return wrap(ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return wrap(ErrRuntime, err)
	}

	task.Kill(ctx, syscall.SIGKILL)
	if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
		return wrap(ErrRuntime, err)
	}

	return nil
}

// Removes the container and its resources.
//
// The task is killed and the container is removed from containerd along
// with its snapshot. Bind-mounted host directories are untouched. After
// destruction the handle is invalid.
func (c *Container) Destroy(ctx context.Context) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			slog.Warn("failed to load container for destruction", "id", c.id, "error", err)
		}
		return
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to delete container during destruction", "id", c.id, "error", err)
	}
}

// Creates the containerd container with the standard build configuration.
func (c *Container) create(ctx context.Context, image containerd.Image, mounts []string) (containerd.Container, error) {
	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(platforms.Format(c.platform)),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithMounts(bindMounts(mounts)),
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the container's long-running task with no attached IO.
func (c *Container) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}

// Removes an existing container with this ID, if one exists.
func (c *Container) remove(ctx context.Context) {
	existing, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return
	}
	slog.Debug("removing stale container", "id", c.id)
	if task, err := existing.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}
	existing.Delete(ctx, containerd.WithSnapshotCleanup)
}

// Builds read-write bind mounts that expose each host directory at the same
// path inside the container, so paths in generated files stay valid.
func bindMounts(dirs []string) []specs.Mount {
	mounts := make([]specs.Mount, 0, len(dirs))
	for _, dir := range dirs {
		mounts = append(mounts, specs.Mount{
			Type:        "bind",
			Source:      dir,
			Destination: dir,
			Options:     []string{"rbind", "rw"},
		})
	}
	return mounts
}
