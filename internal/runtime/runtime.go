package runtime

import (
	"context"
	"log/slog"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing shipyard to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client and provides container operations.
type Runtime struct {
	client *containerd.Client // Containerd client for managing containers and images.
}

// Describes a build container.
type Options struct {
	Image    string   // Image reference, pulled if not present.
	ID       string   // Container ID. A stale container with the same ID is replaced.
	Platform string   // OCI platform (e.g., "linux/amd64").
	Mounts   []string // Host directories bind-mounted read-write at the same path.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, wrap(ErrRuntime, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Pulls the image, then creates and starts a container.
//
// The image is pulled and unpacked for the requested platform only. Any
// existing container with the same ID is removed first, so a build that
// crashed before destroying its container does not block the next one.
func (rt *Runtime) StartContainer(ctx context.Context, opts Options) (*Container, error) {
	platform, err := parsePlatform(opts.Platform)
	if err != nil {
		return nil, wrap(ErrRuntime, err)
	}

	image, err := rt.pullImage(ctx, opts.Image, platform)
	if err != nil {
		return nil, wrap(ErrImage, err)
	}

	c := &Container{
		client:   rt.client,
		id:       opts.ID,
		platform: platform,
	}

	c.remove(ctx)

	ctr, err := c.create(ctx, image, opts.Mounts)
	if err != nil {
		return nil, wrap(ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, wrap(ErrRuntime, err)
	}

	slog.Debug("container started", "id", opts.ID, "image", opts.Image, "platform", platforms.Format(platform))

	return c, nil
}

// Pulls and unpacks an image for a single platform.
//
// Content already in the store is not fetched again, so repeated builds
// against the same tag only pay for changed layers.
func (rt *Runtime) pullImage(ctx context.Context, ref string, platform ocispec.Platform) (containerd.Image, error) {
	slog.Debug("pulling image", "ref", ref, "platform", platforms.Format(platform))

	return rt.client.Pull(ctx, ref,
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(snapshotter),
		containerd.WithPlatformMatcher(platforms.Only(platform)),
	)
}

// Parses a platform string, defaulting the empty string to the host.
func parsePlatform(s string) (ocispec.Platform, error) {
	if s == "" {
		return platforms.DefaultSpec(), nil
	}
	p, err := platforms.Parse(s)
	if err != nil {
		return ocispec.Platform{}, err
	}
	return platforms.Normalize(p), nil
}
