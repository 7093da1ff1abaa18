package main

import "strings"

// expandListFlags rewrites space separated flag values into a form pflag
// understands. For every name, "--name a b" becomes "--name=a --name=b" and
// a bare "--name" becomes "--name=". Values are consumed up to the next
// argument starting with "-", so DEST has to come before such a flag or be
// separated from its values by another flag.
func expandListFlags(args []string, names ...string) []string {
	list := make(map[string]bool, len(names))
	for _, n := range names {
		list["--"+n] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if !list[arg] {
			out = append(out, arg)
			continue
		}

		consumed := 0
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			consumed++
			out = append(out, arg+"="+args[i])
		}
		if consumed == 0 {
			out = append(out, arg+"=")
		}
	}

	return out
}
