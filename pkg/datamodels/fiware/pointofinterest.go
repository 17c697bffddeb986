package fiware

import (
	"strings"

	"github.com/contextsource/ngsild-client/pkg/ngsild/types/entities"
)

//NewPointOfInterest creates a new instance of PointOfInterest
func NewPointOfInterest(poiID string, name string, latitude float64, longitude float64, decorators ...entities.EntityDecoratorFunc) (*entities.EntityImpl, error) {

	if !strings.HasPrefix(poiID, PointOfInterestIDPrefix) {
		poiID = PointOfInterestIDPrefix + poiID
	}

	decorators = append(decorators, entities.DefaultContext())

	e, err := entities.New(poiID, PointOfInterestTypeName, decorators...)
	if err != nil {
		return nil, err
	}

	if _, err = e.Prop("name", name); err != nil {
		return nil, err
	}

	if _, err = e.Location(latitude, longitude); err != nil {
		return nil, err
	}

	return e, nil
}
