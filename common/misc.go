package common

import (
	"os"
)

const serviceName = "upkeep"

var serviceInstance = ""

func GetServiceName() string {
	return serviceName
}

func GetServiceInstance() string {
	if serviceInstance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serviceInstance = serviceName + "-" + hostname
	}
	return serviceInstance
}
