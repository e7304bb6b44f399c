// Courier is an OpenAI-compatible chat API relay over a bot-defended web
// chat service.
//
// It accepts standard chat completion requests, rotates a pool of browser
// session credentials against the upstream, translates the upstream's
// stream into OpenAI-style chunks, and tracks per-conversation context
// window usage so clients know when to start a new conversation.
//
// Usage:
//
//	# Start the relay with the default configuration file
//	courier run
//
//	# Start with a custom configuration file
//	courier run --config /etc/courier/config.yaml
//
//	# Validate the configuration and credential file without starting
//	courier validate
//
//	# Show version information
//	courier version
package main

func main() {
	Execute()
}
