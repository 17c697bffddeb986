package fiware

import (
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/types/entities"
)

//NewOffStreetParking creates a new instance of OffStreetParking
func NewOffStreetParking(parkingID string, availableSpotNumber, totalSpotNumber int, decorators ...entities.EntityDecoratorFunc) (*entities.EntityImpl, error) {

	if !strings.HasPrefix(parkingID, OffStreetParkingIDPrefix) {
		parkingID = OffStreetParkingIDPrefix + parkingID
	}

	decorators = append(decorators, entities.DefaultContext())

	e, err := entities.New(parkingID, OffStreetParkingTypeName, decorators...)
	if err != nil {
		return nil, err
	}

	if _, err = e.Prop("availableSpotNumber", availableSpotNumber); err != nil {
		return nil, err
	}

	if _, err = e.Prop("totalSpotNumber", totalSpotNumber); err != nil {
		return nil, err
	}

	return e, nil
}
