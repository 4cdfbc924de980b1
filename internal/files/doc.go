// Package files finds depot workbooks on disk and stores uploaded ones.
//
// Discovery lists the .xlsx files of a directory in name order, skipping the
// ~$ lock files Excel leaves behind. Manager resolves paths against the
// application base directory and archives uploads under the input directory.
//
//	discovery := files.NewDiscovery(paths.BaseDir)
//	workbooks, err := discovery.FindWorkbooks("data/uploads")
package files
