package version

// VERSION is the installed release tag, checked against VERSION_URL on
// startup so a stale install gets a one-line nudge instead of silently
// drifting from upstream fixes.
const VERSION = "v1.0.0"

const UPDATE_MESSAGE = "Run 'go install github.com/quietkey/pushtotalk/cmd/ptt@main' to update."
