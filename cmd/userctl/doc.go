// Command userctl manages user accounts from the command line: creating
// users, resetting passwords, setting quotas and listing accounts. It is
// meant to be run inside the container against the same database directory
// the server uses.
package main
