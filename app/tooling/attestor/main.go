// This program provides tooling for signing and submitting price
// attestations to the oracle service.
package main

import "github.com/ardanlabs/oracle/app/tooling/attestor/cmd"

func main() {
	cmd.Execute()
}
