// Command gribinfo prints a summary of every field in a GRIB2 file.
//
// Usage:
//
//	gribinfo [-decode] [-model name] file.grib2
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/driftline/stratus/grib2"
	"github.com/driftline/stratus/grib2/packing"
	"github.com/driftline/stratus/grib2/tables"
)

func main() {
	decode := flag.Bool("decode", false, "decode payloads and print value ranges")
	model := flag.String("model", "", "model name for short-name resolution (gfs, hrrr, mrms)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gribinfo [-decode] [-model name] file.grib2")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "gribinfo: %v\n", err)
		os.Exit(1)
	}

	msgs, err := grib2.ScanMessages(data,
		grib2.WithSkipUnsupported(),
		grib2.WithWarn(func(offset int, msg string) {
			fmt.Fprintf(os.Stderr, "warning at %d: %s\n", offset, msg)
		}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "gribinfo: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d fields in %s\n", len(msgs), flag.Arg(0))
	for i, m := range msgs {
		id := m.ParameterID()
		name := id.String()
		if *model != "" {
			name = fmt.Sprintf("%s (%s)", id.ShortName(*model), name)
		}

		levelType, levelValue := m.Section4.Product.Level()
		fmt.Printf("%4d: %-40s %s %g  %s  %s\n",
			i, name,
			tables.GetLevelName(int(levelType)), levelValue,
			m.Section1.ReferenceTime.Format("2006-01-02T15Z"),
			m.Section3.GridDescription())

		if !*decode {
			continue
		}
		field, err := m.Decode()
		if err != nil {
			fmt.Printf("      decode failed: %v\n", err)
			continue
		}

		minV, maxV := float32(0), float32(0)
		valid := 0
		for _, v := range field.Values {
			if packing.IsMissing(v) {
				continue
			}
			if valid == 0 || v < minV {
				minV = v
			}
			if valid == 0 || v > maxV {
				maxV = v
			}
			valid++
		}
		fmt.Printf("      %d/%d valid, range [%g, %g] %s\n",
			valid, len(field.Values), minV, maxV, id.Unit())
	}
}
