package servicebus

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to <namespace>.servicebus.windows.net with the
// default Azure credential chain
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace is empty")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", namespace), cred, nil)
}
