package git

import "strings"

const renameArrow = " => "

// oldFilePath returns the pre-rename path of a numstat path field.
//
// Numstat reports moved files in one of these shapes:
//
//	old_name => new_name
//	{old_prefix => new_prefix}/name
//	name/{old_suffix => new_suffix}
//	old_prefix/{ => new_dir}/name
//	old_prefix/{old_dir => }/name
//
// Brace notation is resolved against the longest "dir/" prefix that is
// directly followed by "{" and whose remainder closes the braces before an
// optional last path element. When the braces carry no prefix or suffix, or
// no brace form fits, the text before the first arrow is the old path.
func oldFilePath(f string) string {
	if !strings.Contains(f, renameArrow) {
		return f
	}

	old := strings.SplitN(f, renameArrow, 2)[0]
	if prefix, name, suffix, ok := matchRenameBraces(f); ok && (prefix != "" || suffix != "") {
		old = prefix + name + suffix
	}

	// 'dir/{ => subdir}/file' leaves 'dir//file' behind.
	return strings.ReplaceAll(old, "//", "/")
}

// matchRenameBraces finds the first split of f into
// prefix "{" old " => " new "}" suffix, trying longer prefixes, longer old
// names and longer new names first. new may not contain "}/" and suffix is
// either empty or a single "/name" element.
func matchRenameBraces(f string) (prefix, oldName, suffix string, ok bool) {
	for _, p := range prefixCandidates(f) {
		if p >= len(f) || f[p] != '{' {
			continue
		}
		rest := f[p+1:]
		for _, a := range arrowPositions(rest) {
			after := rest[a+len(renameArrow):]
			limit := closingLimit(after)
			for k := min(limit, len(after)-1); k >= 0; k-- {
				if after[k] != '}' {
					continue
				}
				tail := after[k+1:]
				if tail != "" && !isSingleElement(tail) {
					continue
				}
				return f[:p], rest[:a], tail, true
			}
		}
	}
	return "", "", "", false
}

// prefixCandidates lists every offset just past a "/" from last to first,
// followed by 0 for the empty prefix.
func prefixCandidates(f string) []int {
	var out []int
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '/' {
			out = append(out, i+1)
		}
	}
	return append(out, 0)
}

// arrowPositions lists the offsets of every arrow in s, last first.
func arrowPositions(s string) []int {
	var out []int
	for i := 0; ; {
		j := strings.Index(s[i:], renameArrow)
		if j < 0 {
			break
		}
		out = append(out, i+j)
		i += j + 1
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// closingLimit returns the first offset where "}/" starts, or len(s).
func closingLimit(s string) int {
	if i := strings.Index(s, "}/"); i >= 0 {
		return i
	}
	return len(s)
}

func isSingleElement(s string) bool {
	return len(s) > 1 && s[0] == '/' && !strings.Contains(s[1:], "/")
}
