package importing

import (
	"time"
	"tzf/index"
	"tzf/io"

	"github.com/hauke96/sigolo/v2"
)

// Import reads all timezone polygons of the input file and writes a new index into the base folder. An existing
// index in that folder is only replaced when the import succeeds.
func Import(inputFile string, zoneProperty string, indexBaseFolder string) (*index.BuildStatistics, error) {
	sigolo.Infof("Start import of file %s", inputFile)
	importStartTime := time.Now()

	records, err := io.ReadPolygonRecords(inputFile, zoneProperty)
	if err != nil {
		return nil, err
	}
	sigolo.Infof("Read %d polygons in %s", len(records), time.Since(importStartTime))

	stats, err := index.WriteIndex(indexBaseFolder, records)
	if err != nil {
		return nil, err
	}

	importDuration := time.Since(importStartTime)
	sigolo.Infof("Finished import in %s", importDuration)

	return stats, nil
}
