/*
Package process runs a Tabula engine as an external binary.

Each call starts the configured command with the operation name appended to
its arguments, writes the call as JSON on stdin and reads a domain.Envelope
from stdout:

	$ echo '{"op":"ping","args":[]}' | tabula engine --stdio ping
	{"result":"tabula-local"}

Canceling the context interrupts the process and kills it after a grace period.
*/
package process
