// Package prompt locates input paths the user did not supply or that do not exist.
//
// On a terminal the user is asked with survey prompts; otherwise locating
// fails immediately so scripted builds never hang waiting for input.
package prompt
