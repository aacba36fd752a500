// Command ttm tracks time per project.
//
// Every command talks to a running `ttm daemon` over its loopback API when one
// answers, and otherwise runs the tracker in-process while holding the same
// lock the daemon uses, so timers keep their state across invocations either
// way.
package main
