package controlplane

import (
	"context"
	"encoding/json"

	flasherrors "github.com/runpod/flash/internal/errors"
)

// GraphQLPath is the single endpoint all GraphQL operations POST to.
const GraphQLPath = "/graphql"

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// GraphQL executes query with variables and decodes the `data` field into
// out.
func (c *Client) GraphQL(ctx context.Context, query string, variables any, out any) error {
	var raw graphqlResponse
	if err := c.Post(ctx, GraphQLPath, graphqlRequest{Query: query, Variables: variables}, &raw); err != nil {
		return err
	}
	if len(raw.Errors) > 0 {
		return flasherrors.ControlPlane(flasherrors.CodeControlPlaneGraphQL, raw.Errors[0].Message, "")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw.Data, out); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode GraphQL data field")
	}
	return nil
}

// SaveEndpointResult is the shape of a resource create/update mutation's
// response: the assigned endpoint id.
type SaveEndpointResult struct {
	ID string `json:"id"`
}

// SaveEndpoint creates or updates a deployed resource via GraphQL,
// returning its assigned endpoint id.
func (c *Client) SaveEndpoint(ctx context.Context, input map[string]any) (SaveEndpointResult, error) {
	const mutation = `
mutation SaveEndpoint($input: EndpointInput!) {
  saveEndpoint(input: $input) { id }
}`
	var resp struct {
		SaveEndpoint SaveEndpointResult `json:"saveEndpoint"`
	}
	if err := c.GraphQL(ctx, mutation, map[string]any{"input": input}, &resp); err != nil {
		return SaveEndpointResult{}, err
	}
	return resp.SaveEndpoint, nil
}

// DeleteEndpoint tears down a deployed resource by id.
func (c *Client) DeleteEndpoint(ctx context.Context, id string) error {
	const mutation = `
mutation DeleteEndpoint($id: ID!) {
  deleteEndpoint(id: $id) { id }
}`
	return c.GraphQL(ctx, mutation, map[string]any{"id": id}, nil)
}

// CreateAuthRequest starts the browser-based login flow
// (createFlashAuthRequest, spec §6).
func (c *Client) CreateAuthRequest(ctx context.Context) (requestID, authURL string, err error) {
	const mutation = `
mutation CreateFlashAuthRequest {
  createFlashAuthRequest { requestId authUrl }
}`
	var resp struct {
		CreateFlashAuthRequest struct {
			RequestID string `json:"requestId"`
			AuthURL   string `json:"authUrl"`
		} `json:"createFlashAuthRequest"`
	}
	if err := c.GraphQL(ctx, mutation, nil, &resp); err != nil {
		return "", "", err
	}
	return resp.CreateFlashAuthRequest.RequestID, resp.CreateFlashAuthRequest.AuthURL, nil
}

// AuthRequestStatus is the poll result of flashAuthRequestStatus.
type AuthRequestStatus struct {
	Status string `json:"status"` // "pending", "approved", "denied", "expired"
	APIKey string `json:"apiKey,omitempty"`
}

// PollAuthRequest checks the status of a pending login request.
func (c *Client) PollAuthRequest(ctx context.Context, requestID string) (AuthRequestStatus, error) {
	const query = `
query FlashAuthRequestStatus($requestId: ID!) {
  flashAuthRequestStatus(requestId: $requestId) { status apiKey }
}`
	var resp struct {
		FlashAuthRequestStatus AuthRequestStatus `json:"flashAuthRequestStatus"`
	}
	if err := c.GraphQL(ctx, query, map[string]any{"requestId": requestID}, &resp); err != nil {
		return AuthRequestStatus{}, err
	}
	return resp.FlashAuthRequestStatus, nil
}

// App is a minimal app resource, used by `flash app` commands.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateApp, GetApp, ListApps, DeleteApp back `flash app {create,get,list,delete}`.
func (c *Client) CreateApp(ctx context.Context, name string) (App, error) {
	const mutation = `mutation CreateApp($name: String!) { createApp(name: $name) { id name } }`
	var resp struct {
		CreateApp App `json:"createApp"`
	}
	err := c.GraphQL(ctx, mutation, map[string]any{"name": name}, &resp)
	return resp.CreateApp, err
}

func (c *Client) GetApp(ctx context.Context, id string) (App, error) {
	const query = `query GetApp($id: ID!) { app(id: $id) { id name } }`
	var resp struct {
		App App `json:"app"`
	}
	err := c.GraphQL(ctx, query, map[string]any{"id": id}, &resp)
	return resp.App, err
}

func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	const query = `query ListApps { apps { id name } }`
	var resp struct {
		Apps []App `json:"apps"`
	}
	err := c.GraphQL(ctx, query, nil, &resp)
	return resp.Apps, err
}

func (c *Client) DeleteApp(ctx context.Context, id string) error {
	const mutation = `mutation DeleteApp($id: ID!) { deleteApp(id: $id) { id } }`
	return c.GraphQL(ctx, mutation, map[string]any{"id": id}, nil)
}

// Environment is a minimal environment resource for `flash env` commands.
type Environment struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	AppID string `json:"appId"`
}

func (c *Client) CreateEnvironment(ctx context.Context, appID, name string) (Environment, error) {
	const mutation = `
mutation CreateEnvironment($appId: ID!, $name: String!) {
  createEnvironment(appId: $appId, name: $name) { id name appId }
}`
	var resp struct {
		CreateEnvironment Environment `json:"createEnvironment"`
	}
	err := c.GraphQL(ctx, mutation, map[string]any{"appId": appID, "name": name}, &resp)
	return resp.CreateEnvironment, err
}

func (c *Client) GetEnvironment(ctx context.Context, id string) (Environment, error) {
	const query = `query GetEnvironment($id: ID!) { environment(id: $id) { id name appId } }`
	var resp struct {
		Environment Environment `json:"environment"`
	}
	err := c.GraphQL(ctx, query, map[string]any{"id": id}, &resp)
	return resp.Environment, err
}

func (c *Client) ListEnvironments(ctx context.Context, appID string) ([]Environment, error) {
	const query = `query ListEnvironments($appId: ID!) { environments(appId: $appId) { id name appId } }`
	var resp struct {
		Environments []Environment `json:"environments"`
	}
	err := c.GraphQL(ctx, query, map[string]any{"appId": appID}, &resp)
	return resp.Environments, err
}

func (c *Client) DeleteEnvironment(ctx context.Context, id string) error {
	const mutation = `mutation DeleteEnvironment($id: ID!) { deleteEnvironment(id: $id) { id } }`
	return c.GraphQL(ctx, mutation, map[string]any{"id": id}, nil)
}

// StateManagerEndpoints fetches the resource_name -> url map used by the
// Service Registry (C16).
func (c *Client) StateManagerEndpoints(ctx context.Context, endpointID string) (map[string]string, error) {
	const query = `
query ResourceEndpoints($endpointId: ID!) {
  resourceEndpoints(endpointId: $endpointId)
}`
	var resp struct {
		ResourceEndpoints map[string]string `json:"resourceEndpoints"`
	}
	if err := c.GraphQL(ctx, query, map[string]any{"endpointId": endpointID}, &resp); err != nil {
		return nil, err
	}
	return resp.ResourceEndpoints, nil
}
