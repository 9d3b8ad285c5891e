package main

import (
	"encoding/json"
	"time"
)

// report prints the users report as indented JSON, or as CSV rows.
func (cli *commandLine) report(asCSV bool) error {
	now := time.Now()
	if asCSV {
		return cli.usrSvc.ExportCSV(cli.out, now)
	}

	rep, err := cli.usrSvc.Report(now)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
