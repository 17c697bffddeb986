package fiware

const urnPrefix string = "urn:ngsi-ld:"

const (
	//AirQualityObservedTypeName is a type name constant for AirQualityObserved
	AirQualityObservedTypeName string = "AirQualityObserved"
	//AirQualityObservedIDPrefix contains the mandatory prefix for AirQualityObserved ID:s
	AirQualityObservedIDPrefix string = urnPrefix + AirQualityObservedTypeName + ":"
	//OffStreetParkingTypeName is a type name constant for OffStreetParking
	OffStreetParkingTypeName string = "OffStreetParking"
	//OffStreetParkingIDPrefix contains the mandatory prefix for OffStreetParking ID:s
	OffStreetParkingIDPrefix string = urnPrefix + OffStreetParkingTypeName + ":"
	//PointOfInterestTypeName is a type name constant for PointOfInterest
	PointOfInterestTypeName string = "PointOfInterest"
	//PointOfInterestIDPrefix contains the mandatory prefix for PointOfInterest ID:s
	PointOfInterestIDPrefix string = urnPrefix + PointOfInterestTypeName + ":"
	//WeatherObservedTypeName is a type name constant for WeatherObserved
	WeatherObservedTypeName string = "WeatherObserved"
	//WeatherObservedIDPrefix contains the mandatory prefix for WeatherObserved ID:s
	WeatherObservedIDPrefix string = urnPrefix + WeatherObservedTypeName + ":"
)
