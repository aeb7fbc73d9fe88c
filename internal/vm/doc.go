// Package vm runs build scripts on a VirtualBox guest reached over SSH.
//
// A [Machine] is a scripted backend: commands are accumulated into a
// Windows batch file with [Machine.AppendScript] and executed as one unit
// with [Machine.RunScript]. The batch file is written into a directory
// shared between host and guest, so the guest sees build inputs and the
// host sees build outputs without any copy step.
//
//	m := vm.New(cfg, backend.NewLocal())
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(ctx)
//
//	m.SetEnv("CSC_KEY_PASSWORD", pass)
//	m.AppendScript("cd", "/d", guestDir)
//	m.AppendScript("yarn", "install")
//	if err := m.RunScript(ctx); err != nil {
//		return err
//	}
//
// Any command in the batch that sets a non-zero errorlevel aborts the
// script with that code.
package vm
