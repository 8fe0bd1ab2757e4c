// ccr is the command-line front end for the gateway: it starts and stops the
// daemon, reports its status, and drives the Control API for router-group
// inspection and switching.
//
// Usage:
//
//	# Start the gateway in the background
//	ccr start
//
//	# Start in the foreground, logging to the terminal
//	ccr start --foreground
//
//	# Check whether the gateway is running
//	ccr status
//
//	# List and switch router groups
//	ccr router list
//	ccr router switch staging
//
//	# Stop the gateway
//	ccr stop
package main

func main() {
	Execute()
}
