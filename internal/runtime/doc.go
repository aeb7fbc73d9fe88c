// Package runtime runs build commands inside containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon. StartContainer pulls the
// build image for the target platform, bind-mounts host directories at the
// same path inside the container, and starts a long-running task so that
// subsequent Exec calls have a running process to attach to. When the
// container is no longer needed it must be destroyed to release its
// snapshot and task.
//
// [Container.Runner] adapts a container to the backend.Runner contract, so
// the release pipeline can run the same command sequence in a container as
// on the host.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "shipyard")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, runtime.Options{
//	    Image:    "docker.io/library/node:20-bullseye",
//	    ID:       "shipyard-linux-develop",
//	    Platform: "linux/amd64",
//	    Mounts:   []string{buildDir},
//	})
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	err = ctr.Runner(buildDir, nil).Run(ctx, "yarn", "install")
package runtime
