package index

import (
	"bytes"
	"os"
	"path"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

const (
	DataFilename      = "timezone_data.bin"
	ZoneNamesFilename = "timezone_names.txt"
)

// WriteIndex builds the index of the given polygons and stores the index data and the zone-name table in the base
// folder. Existing files are only replaced once the whole index has been built and written successfully.
func WriteIndex(baseFolder string, records []PolygonRecord) (*BuildStatistics, error) {
	result, err := BuildIndex(records)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(baseFolder, os.ModePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to create index folder %s", baseFolder)
	}

	zoneNamesBuffer := &bytes.Buffer{}
	err = WriteZoneNames(result.ZoneNames, zoneNamesBuffer)
	if err != nil {
		return nil, err
	}

	dataTempFile, err := writeTempFile(baseFolder, DataFilename, result.Data)
	if err != nil {
		return nil, err
	}
	zoneNamesTempFile, err := writeTempFile(baseFolder, ZoneNamesFilename, zoneNamesBuffer.Bytes())
	if err != nil {
		os.Remove(dataTempFile)
		return nil, err
	}

	err = replaceFile(dataTempFile, path.Join(baseFolder, DataFilename))
	if err != nil {
		os.Remove(zoneNamesTempFile)
		return nil, err
	}
	err = replaceFile(zoneNamesTempFile, path.Join(baseFolder, ZoneNamesFilename))
	if err != nil {
		return nil, err
	}

	sigolo.Infof("Wrote index with %d bytes to %s", len(result.Data), baseFolder)

	return &result.Statistics, nil
}

// writeTempFile writes the data into a new temporary file next to the final file and returns its path.
func writeTempFile(baseFolder string, filename string, data []byte) (string, error) {
	file, err := os.CreateTemp(baseFolder, filename+".*.tmp")
	if err != nil {
		return "", errors.Wrapf(err, "Unable to create temporary file for %s", filename)
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", errors.Wrapf(err, "Unable to write temporary file %s", file.Name())
	}

	err = file.Close()
	if err != nil {
		os.Remove(file.Name())
		return "", errors.Wrapf(err, "Unable to close temporary file %s", file.Name())
	}

	sigolo.Debugf("Wrote %d bytes to temporary file %s", len(data), file.Name())
	return file.Name(), nil
}

func replaceFile(tempFile string, targetFile string) error {
	err := os.Rename(tempFile, targetFile)
	if err != nil {
		os.Remove(tempFile)
		return errors.Wrapf(err, "Unable to move %s to %s", tempFile, targetFile)
	}
	return nil
}
