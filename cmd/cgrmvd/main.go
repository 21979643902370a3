// Command cgrmvd is the privileged cgroup-move helper: it owns the system
// bus name com.refi64.uprocd.Cgrmvd and moves workers into their driver's
// cgroup on request, consulting the policy files under
// /usr/share/cgrmvd/policies (spec §4.3, §7). It intentionally has no
// subcommands, matching the reference helper's single-purpose main.
package main

import (
	"os"

	"github.com/refi64/uprocd/internal/pkg/cgrouphelper"
	"github.com/refi64/uprocd/internal/pkg/sylog"
)

func main() {
	helper, err := cgrouphelper.New()
	if err != nil {
		sylog.Fatalf("initializing cgrmvd: %v", err)
	}

	if err := helper.Serve(); err != nil {
		sylog.Errorf("cgrmvd exiting: %v", err)
		os.Exit(1)
	}
}
