// package server hosts the loopback HTTP endpoint for the OAuth
// authorization-code flow. The browser redirects back to /callback with a
// state token and authorization code; the handler validates the state,
// performs a one-shot code exchange and hands the result to the waiting CLI
// over a channel.
package server
