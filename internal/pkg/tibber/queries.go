package tibber

const todayPricesQuery = `
{
  viewer {
    homes {
      id
      appNickname
      currentSubscription {
        priceInfo {
          today {
            total
            energy
            tax
            startsAt
            currency
          }
        }
      }
    }
  }
}`

const sendPushNotificationMutation = `
mutation SendPushNotification($title: String!, $message: String!) {
  sendPushNotification(input: {
    title: $title,
    message: $message,
    screenToOpen: CONSUMPTION
  }){
    successful
    pushedToNumberOfDevices
  }
}`
