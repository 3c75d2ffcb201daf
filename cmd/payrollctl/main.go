// Command payrollctl is the operator CLI over the payroll SQLite store.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
