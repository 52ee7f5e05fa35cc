// Command capdeck runs the capture daemon and drives it from the shell.
//
// `capdeck run` hosts the media controller in the foreground. The other
// subcommands talk to it over the control socket, except `config`,
// `doctor` and `devices --local` which work without a daemon.
package main
