package dataprocessing

import "strings"

// ResolveDepot derives the depot name from a source file: the file name without
// its directory and without the part from the last '.' on.
//
//	ResolveDepot("folder/sub/NAIROBI.xlsx") == "NAIROBI"
//	ResolveDepot("ELDORET.backup.xlsx") == "ELDORET.backup"
func ResolveDepot(sourceFile string) string {
	name := sourceFile[strings.LastIndex(sourceFile, "/")+1:]
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
