package index

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

// LoadZoneNames reads the zone-name table. Line n contains the name of zone id n.
func LoadZoneNames(zoneNamesFile string) ([]string, error) {
	file, err := os.Open(zoneNamesFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open zone-name file %s", zoneNamesFile)
	}
	defer file.Close()

	zoneNames, err := ReadZoneNames(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read zone-name file %s", zoneNamesFile)
	}
	return zoneNames, nil
}

func ReadZoneNames(reader io.Reader) ([]string, error) {
	var zoneNames []string

	scanner := bufio.NewScanner(reader)
	lineCounter := 0
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			return nil, errors.Wrapf(ErrInvalidIndex, "Empty zone name in line %d", lineCounter)
		}
		if len(zoneNames) > 0 && zoneNames[len(zoneNames)-1] >= name {
			return nil, errors.Wrapf(ErrInvalidIndex, "Zone names not sorted or not unique in line %d: %s", lineCounter, name)
		}

		sigolo.Tracef("Found zone %d: %s", lineCounter, name)
		zoneNames = append(zoneNames, name)
		lineCounter++
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Error while scanning zone names")
	}

	return zoneNames, nil
}

func WriteZoneNames(zoneNames []string, writer io.Writer) error {
	for _, name := range zoneNames {
		if strings.ContainsAny(name, "\r\n") {
			return errors.Errorf("Zone name '%s' contains a line break", name)
		}

		_, err := writer.Write([]byte(name + "\n"))
		if err != nil {
			return errors.Wrapf(err, "Unable to write zone name %s", name)
		}
	}
	return nil
}
