// Command harvestsync reconciles time-windowed harvest records from the
// production API and hosted table service into the local reporting
// database, using upsert semantics keyed on each record's natural identity.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
