package alive

// Version is the current release of the alive CLI and libraries.
const Version = "0.1.0"
