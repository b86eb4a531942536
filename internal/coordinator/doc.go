// Package coordinator polls a remote source on a fixed interval and fans the
// result out to listeners.
//
// One Coordinator exists per shopping list. Entities read the latest data
// with Data and are told about every refresh, successful or not, through
// listeners. A failed refresh keeps the previous data and flips
// LastUpdateSuccess to false until the next successful fetch.
package coordinator
