// Command pboted is the pboted node daemon: a Kademlia DHT peer for a
// serverless, anonymity-network-resident email system.
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
